package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/juparave/cotestpilot/internal/browser"
	"github.com/juparave/cotestpilot/internal/check"
	"github.com/juparave/cotestpilot/internal/config"
	"github.com/juparave/cotestpilot/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
	cfgFile string
	verbose bool
	quiet   bool
)

// page is what the CLI needs from a driver binding beyond the check
// capabilities: a way to get somewhere and a way to shut down.
type page interface {
	check.Pager
	Navigate(ctx context.Context, url string) error
	Close() error
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "cotestpilot",
		Short:   "AI-powered page checking for browser automation",
		Long:    `coTestPilot drives a browser to a page, captures a screenshot and the page text, and asks a multimodal model to report visual and content defects from the perspective of one or more testing personas.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: ~/.config/cotestpilot/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress console output")

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newReportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCheckCmd() *cobra.Command {
	var (
		url          string
		driver       string
		webdriverURL string
		browserName  string
		testers      []string
		label        string
		outputDir    string
		customPrompt string
		rulesFile    string
		timeout      time.Duration
		noSave       bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run an AI check against a page",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			opts := check.DefaultOptions()
			opts.Testers = testers
			opts.Label = label
			opts.CustomPrompt = customPrompt
			opts.Timeout = timeout
			opts.SaveToFile = !noSave
			if outputDir != "" {
				opts.OutputDir = outputDir
			} else {
				opts.OutputDir = cfg.OutputDir
			}
			if rulesFile != "" {
				data, err := os.ReadFile(rulesFile)
				if err != nil {
					return fmt.Errorf("reading rules file: %w", err)
				}
				rules, err := check.ParseRules(data)
				if err != nil {
					return err
				}
				opts.CustomRules = rules
			}

			pg, err := openPage(cmd.Context(), driver, webdriverURL, browserName, log)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := pg.Navigate(cmd.Context(), url); err != nil {
				return err
			}

			checker := check.New(pg, cfg, log)
			result := checker.Check(cmd.Context(), opts)

			if result.Failed() {
				fmt.Printf("Check failed: %s\n", result.RawResponse.Error)
				return nil
			}

			fmt.Printf("Found %d issues on %s", result.TotalBugs(), result.URL)
			if result.HasBugs() {
				fmt.Printf(" (%d high, %d medium, %d low)", result.HighCount(), result.MediumCount(), result.LowCount())
			}
			fmt.Println()
			for _, bug := range result.Bugs {
				fmt.Printf("  [%s] %s (confidence %.2f)\n", bug.Severity, bug.Title, bug.Confidence)
			}
			if result.OutputFile != "" {
				fmt.Printf("Results saved to %s\n", result.OutputFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "URL of the page to check")
	cmd.Flags().StringVar(&driver, "driver", "chromedp", "Driver binding to use: chromedp or webdriver")
	cmd.Flags().StringVar(&webdriverURL, "webdriver-url", "http://localhost:4444/wd/hub", "Remote WebDriver address (webdriver driver only)")
	cmd.Flags().StringVar(&browserName, "browser", "chrome", "Browser name for the WebDriver session")
	cmd.Flags().StringSliceVarP(&testers, "testers", "t", nil, "Tester names to run (substring match, repeatable)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Label for the result file")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for result files")
	cmd.Flags().StringVarP(&customPrompt, "custom-prompt", "p", "", "Extra instructions appended to the analysis prompt")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "Path to a JSON file with custom rules")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-check timeout (minimum 1s)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Don't save results to a JSON file")
	cmd.MarkFlagRequired("url")

	return cmd
}

func newReportCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate an HTML report from saved check results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			dir := outputDir
			if dir == "" {
				dir = cfg.OutputDir
			}

			// Report rendering needs no driver; wrap a nil page.
			checker := check.New(nil, cfg, log)
			path, err := checker.Report(dir)
			if err != nil {
				return err
			}
			fmt.Printf("Report generated at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory containing JSON result files")

	return cmd
}

func setup() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Verbose = verbose
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	verbosity := logging.VerbosityBasic
	switch {
	case quiet:
		verbosity = logging.VerbosityNone
	case verbose:
		verbosity = logging.VerbosityVerbose
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}

	log, err := logging.New(level, verbosity, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return cfg, log, nil
}

func openPage(ctx context.Context, driver, webdriverURL, browserName string, log *zap.SugaredLogger) (page, error) {
	switch driver {
	case "chromedp":
		return browser.NewChromePage(ctx, log)
	case "webdriver":
		return browser.NewWebDriverPage(webdriverURL, browserName, log)
	default:
		return nil, fmt.Errorf("unknown driver %q (want chromedp or webdriver)", driver)
	}
}
