package targets

import (
	"net/url"
	"strings"
)

// Options configures selection constraints.
type Options struct {
	// MaxTotal caps the number of targets. Zero means no cap.
	MaxTotal int
	// PerHost caps targets per host. Zero means no cap.
	PerHost int
	// Allow restricts targets to these domains and their subdomains.
	Allow []string
	// Deny drops these domains and their subdomains. Deny wins over Allow.
	Deny []string
}

// Select applies domain filters and caps to already normalized targets,
// preserving input order.
func Select(in []Target, opt Options) []Target {
	hostCounts := map[string]int{}
	out := make([]Target, 0, len(in))
	for _, t := range in {
		u, err := url.Parse(t.URL)
		if err != nil || u.Host == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if matchesAny(host, opt.Deny) {
			continue
		}
		if len(opt.Allow) > 0 && !matchesAny(host, opt.Allow) {
			continue
		}
		if opt.PerHost > 0 && hostCounts[host] >= opt.PerHost {
			continue
		}
		hostCounts[host]++
		out = append(out, t)
		if opt.MaxTotal > 0 && len(out) >= opt.MaxTotal {
			break
		}
	}
	return out
}

func matchesAny(host string, domains []string) bool {
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
