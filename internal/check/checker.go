package check

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/juparave/cotestpilot/internal/config"
	"github.com/juparave/cotestpilot/internal/domain"
	"github.com/juparave/cotestpilot/internal/prompt"
	"github.com/juparave/cotestpilot/internal/ratelimit"
	"github.com/juparave/cotestpilot/internal/report"
	"github.com/juparave/cotestpilot/internal/tester"
	"github.com/juparave/cotestpilot/internal/util"
	"github.com/juparave/cotestpilot/internal/vision"
	"go.uber.org/zap"
)

// Pager is the driver capability Checker consumes. Both bindings in
// internal/browser satisfy it; any automation backend that can report its
// URL, extract body text, and capture a screenshot can be checked.
type Pager interface {
	CurrentURL(ctx context.Context) (string, error)
	BodyText(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
}

const (
	// DefaultOutputDir is where result files land unless overridden.
	DefaultOutputDir = "ai_check_results"

	defaultLabel      = "ai_checks"
	defaultTimeout    = 30 * time.Second
	minTimeout        = time.Second
	defaultRetryDelay = 2 * time.Second
	timestampLayout   = "20060102_150405"
)

// Options control one Check invocation. A nil *Options means DefaultOptions.
type Options struct {
	ProfileSearch string         // label for the kind of check; recorded on the result
	CustomRules   map[string]any // reserved for rule packs; validated at the CLI boundary, not yet folded into the prompt
	CustomPrompt  string         // appended verbatim to every tester's prompt
	Output        string         // output-format instruction; prompt.DefaultOutput when empty
	Testers       []string       // tester name fragments; empty selects the default persona
	Label         string         // result file label; "ai_checks" when empty
	Timeout       time.Duration  // per-check deadline, clamped up to 1s minimum
	SaveToFile    bool
	OutputDir     string
}

// DefaultOptions returns the options used for a plain check.
func DefaultOptions() *Options {
	return &Options{
		Timeout:    defaultTimeout,
		SaveToFile: true,
		OutputDir:  DefaultOutputDir,
	}
}

// ParseRules decodes a custom-rules document. The document must be a JSON
// object; anything else is rejected before any network activity happens.
func ParseRules(data []byte) (map[string]any, error) {
	var rules map[string]any
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("custom rules must be a JSON object: %w", err)
	}
	return rules, nil
}

// persistMu serializes the read-modify-write of result files within this
// process. Concurrent processes writing the same file can still lose
// updates.
var persistMu sync.Mutex

// Checker wraps a page driver and exposes the AI check and report
// operations on it. One Checker serves one driver; no state carries over
// between Check calls.
type Checker struct {
	page     Pager
	cfg      *config.Config
	log      *zap.SugaredLogger
	vision   *vision.Client
	limiter  *ratelimit.Limiter
	registry *tester.Registry

	retryDelay time.Duration
}

// New creates a Checker around a page driver. The persona catalog is loaded
// once here: the built-in catalog, or cfg.TestersFile when set.
func New(page Pager, cfg *config.Config, log *zap.SugaredLogger) *Checker {
	var registry *tester.Registry
	if cfg.TestersFile != "" {
		registry = tester.NewRegistryFromFile(cfg.TestersFile, log)
	} else {
		registry = tester.NewRegistry(log)
	}

	return &Checker{
		page:       page,
		cfg:        cfg,
		log:        log,
		vision:     vision.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Model, log),
		limiter:    ratelimit.New(cfg.APIRateLimit),
		registry:   registry,
		retryDelay: defaultRetryDelay,
	}
}

// Check performs an AI-powered check of the current page. It never returns
// an error: any failure is converted into an error-shaped CheckResult with
// empty bugs and the message in RawResponse.
func (c *Checker) Check(ctx context.Context, opts *Options) domain.CheckResult {
	if opts == nil {
		opts = DefaultOptions()
	}

	profile := opts.ProfileSearch
	if profile == "" {
		profile = "default"
	}
	c.log.Infow("starting page check", "profile", profile)

	result, err := c.run(ctx, opts)
	if err != nil {
		c.log.Errorw("critical error during page check", "error", err)
		url := "unknown"
		if u, uerr := c.page.CurrentURL(ctx); uerr == nil {
			url = u
		}
		return domain.CheckResult{
			Timestamp:   time.Now(),
			URL:         url,
			Bugs:        []domain.Finding{},
			RawResponse: domain.CheckRecord{Error: err.Error()},
			Profile:     profile,
		}
	}

	result.Profile = profile
	return *result
}

func (c *Checker) run(ctx context.Context, opts *Options) (*domain.CheckResult, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if timeout < minTimeout {
		c.log.Warnw("timeout too low, clamping", "requested", timeout, "minimum", minTimeout)
		timeout = minTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Capture and save screenshot
	if err := util.EnsureDir(c.cfg.ScreenshotDir); err != nil {
		return nil, fmt.Errorf("creating screenshot directory: %w", err)
	}
	started := time.Now()
	screenshotPath := filepath.Join(c.cfg.ScreenshotDir, "check_"+started.Format(timestampLayout)+".png")
	if err := c.page.Screenshot(ctx, screenshotPath); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	imageBytes, err := os.ReadFile(screenshotPath)
	if err != nil {
		return nil, fmt.Errorf("reading screenshot: %w", err)
	}
	imageBase64 := base64.StdEncoding.EncodeToString(imageBytes)

	selected := c.registry.Select(opts.Testers)
	c.log.Infow("selected testers", "count", len(selected))

	url, err := c.page.CurrentURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page url: %w", err)
	}
	pageText, err := c.page.BodyText(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page text: %w", err)
	}

	// Testers run in selection order, one blocking call each.
	var testersResults []domain.TesterResult
	for _, t := range selected {
		visionPrompt := prompt.Build(prompt.Input{
			URL:          url,
			PageText:     pageText,
			Tester:       t,
			Output:       opts.Output,
			CustomPrompt: opts.CustomPrompt,
		})

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		findings, raw, err := c.analyzeWithRetry(ctx, visionPrompt, imageBase64)

		var issues json.RawMessage
		switch {
		case err == nil:
			if findings == nil {
				findings = []domain.Finding{}
			}
			issues, _ = json.Marshal(findings)
			c.log.Infow("analysis complete", "tester", t.Name, "issues", len(findings))
		case errors.Is(err, vision.ErrUnparsable):
			// Keep the raw reply for this tester and move on; one garbled
			// reply should not sink the remaining testers.
			c.log.Warnw("model reply not parseable, keeping raw text", "tester", t.Name, "error", err)
			issues, _ = json.Marshal(raw)
		default:
			return nil, fmt.Errorf("analyzing as %s: %w", t.Name, err)
		}

		testersResults = append(testersResults, domain.TesterResult{
			Tester:    t.Name,
			Biography: t.Biography,
			Issues:    issues,
		})
	}

	record := domain.CheckRecord{
		Timestamp:      started.Format(time.RFC3339),
		URL:            url,
		Screenshot:     screenshotPath,
		TestersResults: testersResults,
	}

	// Flatten findings across testers, preserving tester order. A tester
	// whose payload does not parse is dropped from the flat list only.
	bugs := []domain.Finding{}
	for i := range testersResults {
		findings, err := testersResults[i].Findings()
		if err != nil {
			c.log.Warnw("error parsing issues from tester", "tester", testersResults[i].Tester, "error", err)
			continue
		}
		bugs = append(bugs, findings...)
	}

	outputFile := ""
	if opts.SaveToFile {
		outputFile, err = c.persist(record, opts)
		if err != nil {
			return nil, err
		}
	}

	return &domain.CheckResult{
		Timestamp:   time.Now(),
		URL:         url,
		Bugs:        bugs,
		RawResponse: record,
		OutputFile:  outputFile,
	}, nil
}

// analyzeWithRetry calls the vision endpoint up to MaxRetries times with a
// fixed delay between attempts. The final attempt's error propagates.
func (c *Checker) analyzeWithRetry(ctx context.Context, visionPrompt, imageBase64 string) ([]domain.Finding, string, error) {
	attempts := c.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastRaw string
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		findings, raw, err := c.vision.Analyze(ctx, visionPrompt, imageBase64)
		if err == nil {
			return findings, raw, nil
		}
		lastRaw, lastErr = raw, err

		if attempt < attempts {
			c.log.Warnf("API call failed, retrying... (%d attempts left)", attempts-attempt)
			select {
			case <-ctx.Done():
				return nil, lastRaw, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	return nil, lastRaw, lastErr
}

// persist appends the record to the run's result file, creating it when
// absent. An existing file holding a single object is treated as a
// one-element array. The whole file is rewritten each time.
func (c *Checker) persist(record domain.CheckRecord, opts *Options) (string, error) {
	label := opts.Label
	if label == "" {
		label = defaultLabel
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	if err := util.EnsureDir(outputDir); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s_ai.json", label, time.Now().Format(timestampLayout))
	path := filepath.Join(outputDir, name)

	persistMu.Lock()
	defer persistMu.Unlock()

	var records []domain.CheckRecord
	if data, err := os.ReadFile(path); err == nil {
		if uerr := json.Unmarshal(data, &records); uerr != nil {
			var one domain.CheckRecord
			if json.Unmarshal(data, &one) == nil {
				records = []domain.CheckRecord{one}
			}
		}
	}
	records = append(records, record)

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", fmt.Errorf("writing results: %w", err)
	}

	c.log.Infow("AI check results saved", "file", path)
	return path, nil
}

// Report renders an HTML report over the result files in outputDir. Unlike
// Check, fatal rendering failures propagate to the caller.
func (c *Checker) Report(outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	return report.NewRenderer(c.log).Render(outputDir)
}
