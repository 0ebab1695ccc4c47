package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goscrape/internal/article"
	"github.com/hyperifyio/goscrape/internal/report"
)

const (
	resultsFile  = "results.json"
	manifestFile = "manifest.json"
)

// writeOutputs writes one JSON file per record, the combined results and
// the manifest, plus optional Markdown and PDF renditions. With Stdout set
// the JSON goes to stdout instead: a single object for one record, an array
// otherwise.
func (a *App) writeOutputs(records []article.Record) error {
	if a.cfg.Stdout {
		var v any = records
		if len(records) == 1 {
			v = records[0]
		}
		if err := report.EncodeJSON(a.stdout, v); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
	}
	dir := strings.TrimSpace(a.cfg.OutputDir)
	if dir == "" {
		return nil
	}

	files := make([]string, len(records))
	for i, r := range records {
		path := report.OutputPath(dir, r, "json")
		if err := report.WriteJSON(path, r); err != nil {
			return err
		}
		files[i] = filepath.Base(path)
		log.Debug().Str("url", r.URL).Str("path", path).Msg("record written")

		if !r.Success {
			continue
		}
		if a.cfg.EnableMarkdown {
			if err := report.WriteMarkdown(report.OutputPath(dir, r, "md"), r); err != nil {
				return err
			}
		}
		if a.cfg.EnablePDF {
			pdfPath := report.OutputPath(dir, r, "pdf")
			if err := report.WritePDF(report.RenderMarkdown(r), pdfPath); err != nil {
				// PDF is a convenience rendition; keep the run going
				log.Warn().Err(err).Str("path", pdfPath).Msg("pdf export failed")
			}
		}
	}

	if err := report.WriteJSON(filepath.Join(dir, resultsFile), records); err != nil {
		return err
	}
	if err := report.WriteJSON(filepath.Join(dir, manifestFile), a.buildManifest(records, files)); err != nil {
		return err
	}
	log.Info().Str("dir", dir).Int("records", len(records)).Msg("outputs written")
	return nil
}

// printSummary renders the console summary. It goes to stderr when stdout
// carries JSON.
func (a *App) printSummary(records []article.Record) {
	if !a.cfg.Summary || len(records) == 0 {
		return
	}
	w := a.stdout
	if a.cfg.Stdout {
		w = a.stderr
	}
	if len(records) == 1 {
		report.Detail(w, records[0])
		return
	}
	report.Summary(w, records)
}
