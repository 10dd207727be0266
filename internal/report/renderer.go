package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/juparave/cotestpilot/internal/domain"
	"github.com/juparave/cotestpilot/internal/util"
	"go.uber.org/zap"
)

//go:embed report_template.html
var templateHTML string

// reportName is the fixed output file name inside the results directory.
const reportName = "ai_check_report.html"

// Renderer aggregates persisted check results into one HTML document.
type Renderer struct {
	log *zap.SugaredLogger
}

// NewRenderer creates a Renderer.
func NewRenderer(log *zap.SugaredLogger) *Renderer {
	return &Renderer{log: log}
}

// recordView is a CheckRecord prepared for the template, with each tester's
// issues decoded (or carried as raw text when undecodable).
type recordView struct {
	Timestamp  string
	URL        string
	Screenshot string
	Error      string
	Testers    []testerView
}

type testerView struct {
	Name      string
	Biography string
	Findings  []domain.Finding
	Raw       string // set when the payload did not decode into findings
}

// Render scans outputDir for result files, copies referenced screenshots
// into a reports/ subdirectory, and writes the aggregate HTML report.
// Unreadable result files are skipped with a warning; template or write
// failures are fatal and propagate.
func (r *Renderer) Render(outputDir string) (string, error) {
	r.log.Infow("generating report", "dir", outputDir)

	reportsDir := filepath.Join(outputDir, "reports")
	if err := util.EnsureDir(reportsDir); err != nil {
		return "", fmt.Errorf("creating reports directory: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(outputDir, "*_ai.json"))
	if err != nil {
		return "", fmt.Errorf("scanning result files: %w", err)
	}

	var records []domain.CheckRecord
	for _, file := range files {
		recs, err := readRecords(file)
		if err != nil {
			r.log.Warnw("error reading result file, skipping", "file", file, "error", err)
			continue
		}
		records = append(records, recs...)
	}

	// Copy screenshots next to the report and point records at the copies.
	// Only the in-memory aggregate is rewritten, never the source files.
	for i := range records {
		src := records[i].Screenshot
		if src == "" || !util.FileExists(src) {
			continue
		}
		dest := filepath.Join(reportsDir, filepath.Base(src))
		if err := util.CopyFile(src, dest); err != nil {
			r.log.Warnw("error copying screenshot", "file", src, "error", err)
			continue
		}
		records[i].Screenshot = filepath.Join("reports", filepath.Base(src))
	}

	views := make([]recordView, 0, len(records))
	for i := range records {
		views = append(views, buildView(&records[i]))
	}

	tmpl, err := template.New("report").Parse(templateHTML)
	if err != nil {
		r.log.Errorw("report template failed to parse", "error", err)
		return "", fmt.Errorf("parsing report template: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		Results        []recordView
		GenerationTime string
	}{
		Results:        views,
		GenerationTime: time.Now().Format("2006-01-02 15:04:05"),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		r.log.Errorw("report template failed to render", "error", err)
		return "", fmt.Errorf("rendering report: %w", err)
	}

	reportPath := filepath.Join(outputDir, reportName)
	if err := os.WriteFile(reportPath, buf.Bytes(), 0644); err != nil {
		r.log.Errorw("report write failed", "error", err)
		return "", fmt.Errorf("writing report: %w", err)
	}

	r.log.Infow("report generated", "path", reportPath)
	return reportPath, nil
}

// readRecords parses a result file holding either an array of records or a
// single record object.
func readRecords(path string) ([]domain.CheckRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []domain.CheckRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var one domain.CheckRecord
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []domain.CheckRecord{one}, nil
}

func buildView(rec *domain.CheckRecord) recordView {
	view := recordView{
		Timestamp:  rec.Timestamp,
		URL:        rec.URL,
		Screenshot: rec.Screenshot,
		Error:      rec.Error,
	}
	for i := range rec.TestersResults {
		tr := &rec.TestersResults[i]
		tv := testerView{Name: tr.Tester, Biography: tr.Biography}
		findings, err := tr.Findings()
		if err != nil {
			tv.Raw = string(tr.Issues)
		} else {
			tv.Findings = findings
		}
		view.Testers = append(view.Testers, tv)
	}
	return view
}
