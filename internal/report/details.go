package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"ts":  stamp,
	"pct": func(f float64) string { return fmt.Sprintf("%.2f%%", f) },
}).ParseFS(templateFS, "templates/*.html.tmpl"))

// writeDetails renders report.json, uniq_id.txt, details.html and
// summary.pdf into the record's directory and returns its relative path.
func (e *Emitter) writeDetails(rec domain.ScanRecord, finished bool, now time.Time) (string, error) {
	rel := RelativeDir(rec)
	dir := filepath.Join(e.opts.DetailsDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create details directory: %w", err)
	}

	view := newRecordView(rec, finished, now)

	data, err := json.MarshalIndent(view, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal report.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.json"), data, 0o644); err != nil {
		return "", fmt.Errorf("write report.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "uniq_id.txt"), []byte(rec.ID), 0o644); err != nil {
		return "", fmt.Errorf("write uniq_id.txt: %w", err)
	}
	if err := renderTemplate(filepath.Join(dir, "details.html"), "details.html.tmpl", view); err != nil {
		return "", fmt.Errorf("write details.html: %w", err)
	}
	if err := writePDF(filepath.Join(dir, "summary.pdf"), view); err != nil {
		return "", fmt.Errorf("write summary.pdf: %w", err)
	}
	return rel, nil
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func renderIndex(path string, v indexView) error {
	return renderTemplate(path, "index.html.tmpl", v)
}

// renderTemplate writes through a temp file so readers never see a partial page.
func renderTemplate(path, name string, data any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := templates.ExecuteTemplate(f, name, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
