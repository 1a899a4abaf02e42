package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/entrhq/e2ekit/pkg/browser"
	"github.com/entrhq/e2ekit/pkg/config"
	"github.com/entrhq/e2ekit/pkg/driver"
	"github.com/entrhq/e2ekit/pkg/logging"
	"github.com/entrhq/e2ekit/pkg/metrics"
	"github.com/entrhq/e2ekit/pkg/orchestrator"
)

// Command and flag names
const (
	CmdDrivers        = "drivers"
	CmdAcquire        = "acquire"
	CmdSummary        = "summary"
	CmdConfig         = "config"
	CmdVersion        = "version"
	FlagConfig        = "config"
	FlagEngine        = "engine"
	FlagURL           = "url"
	FlagScreenshot    = "screenshot"
	FlagHeadless      = "headless"
	FlagFailOnFailure = "fail-on-failure"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// errTestsFailed makes `summary --fail-on-failure` exit non-zero.
var errTestsFailed = errors.New("run contains failed tests")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "e2ekit",
		Short: "Browser end-to-end test infrastructure",
		Long: `e2ekit drives browser sessions for end-to-end test runs.

Commands:
  e2ekit drivers                      # List engines and discovered browser binaries
  e2ekit acquire --engine chrome      # Acquire a session through the driver chain
  e2ekit summary Reports/TestMetrics_20240301_140509.json
  e2ekit config                       # Print the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(FlagConfig, "", "path to the YAML configuration file")

	root.AddCommand(
		newDriversCmd(),
		newAcquireCmd(),
		newSummaryCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(FlagConfig)
	return config.Load(path)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   CmdVersion,
		Short: "Print the e2ekit version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "e2ekit v%s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   CmdConfig,
		Short: "Print the effective configuration (file, then E2E_* overrides)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newDriversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   CmdDrivers,
		Short: "List browser engines and discovered browser binaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ENGINE\tBROWSER\tCHANNEL\tAVAILABLE")
			for _, e := range browser.Engines() {
				available := "yes"
				if err := e.CheckPlatform(runtime.GOOS); err != nil {
					available = "no (" + e.RequiredPlatform() + " only)"
				}
				channel := e.Channel()
				if channel == "" {
					channel = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e, e.PlaywrightBrowser(), channel, available)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			d := driver.NewDiscoverer(cfg.DriversDir, driver.DefaultCacheDirs(), runtime.GOOS, nil)
			fmt.Fprintln(out, "\nSearch locations:")
			for _, dir := range d.Roots() {
				fmt.Fprintf(out, "  %s\n", dir)
			}

			found := d.Candidates()
			fmt.Fprintf(out, "\nDiscovered binaries (%d):\n", len(found))
			for _, path := range found {
				fmt.Fprintf(out, "  %s\n", path)
			}
			return nil
		},
	}
}

func newAcquireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   CmdAcquire,
		Short: "Acquire a browser session through the driver chain",
		Long: `Acquire a browser session through the managed, discovery and native stages,
optionally open a URL and save a screenshot, then dispose the session.`,
		Args: cobra.NoArgs,
		RunE: runAcquire,
	}
	cmd.Flags().String(FlagEngine, "", "browser engine (default from configuration)")
	cmd.Flags().String(FlagURL, "", "URL to open once the session is up")
	cmd.Flags().String(FlagScreenshot, "", "write a PNG screenshot to this path")
	cmd.Flags().Bool(FlagHeadless, true, "run the browser headless")
	return cmd
}

func runAcquire(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if engine, _ := cmd.Flags().GetString(FlagEngine); engine != "" {
		cfg.Browser = engine
	}
	cfg.Headless, _ = cmd.Flags().GetBool(FlagHeadless)

	out := cmd.OutOrStdout()
	log := logging.New("acquire", cmd.ErrOrStderr())
	log.SetLevel(logging.ParseLevel(cfg.LogLevel))

	chain := driver.NewChain(orchestrator.DriverConfig(cfg), driver.WithLogger(log))
	defer func() {
		if err := chain.Dispose(); err != nil {
			log.Warnf("Error disposing session: %v", err)
		}
	}()

	start := time.Now()
	handle, err := chain.AcquireNamed(cfg.Browser)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Acquired %s session via %s stage (%s backend) in %s\n",
		handle.Engine, handle.Stage, handle.Session.Backend(), time.Since(start).Round(time.Millisecond))
	if handle.BinaryPath != "" {
		fmt.Fprintf(out, "Binary: %s\n", handle.BinaryPath)
	}

	if url, _ := cmd.Flags().GetString(FlagURL); url != "" {
		if err := handle.Session.Navigate(url); err != nil {
			return err
		}
		title, _ := handle.Session.Title()
		fmt.Fprintf(out, "Opened %s (%q)\n", handle.Session.CurrentURL(), title)
	}

	if path, _ := cmd.Flags().GetString(FlagScreenshot); path != "" {
		data, err := handle.Session.Screenshot()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return fmt.Errorf("failed to create screenshot directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("failed to write screenshot: %w", err)
		}
		fmt.Fprintf(out, "Screenshot saved to %s\n", path)
	}
	return nil
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   CmdSummary + " <metrics.json>",
		Short: "Summarize an exported metrics file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			export, err := metrics.ReadMetrics(args[0])
			if err != nil {
				return err
			}
			printSummary(cmd, export)

			failOnFailure, _ := cmd.Flags().GetBool(FlagFailOnFailure)
			if failOnFailure && export.Summary.FailedTests > 0 {
				return errTestsFailed
			}
			return nil
		},
	}
	cmd.Flags().Bool(FlagFailOnFailure, false, "exit non-zero when the run has failed tests")
	return cmd
}

func printSummary(cmd *cobra.Command, export *metrics.Export) {
	out := cmd.OutOrStdout()
	s := export.Summary

	rateStyle := passStyle
	if s.FailedTests > 0 {
		rateStyle = failStyle
	}

	fmt.Fprintln(out, headingStyle.Render("Executed: "+s.ExecutionDate.Format(time.RFC3339)))
	fmt.Fprintf(out, "Total: %d, Passed: %d, Failed: %d, Skipped: %d\n", s.TotalTests, s.PassedTests, s.FailedTests, s.SkippedTests)
	fmt.Fprintln(out, rateStyle.Render(fmt.Sprintf("Pass Rate: %.2f%%", s.PassRate)))
	fmt.Fprintf(out, "Duration: %.0fms total, %.0fms average\n", s.TotalDurationMs, s.AverageDurationMs)

	var failed []metrics.Record
	for _, r := range export.Records() {
		if r.Result == metrics.Fail {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return
	}

	fmt.Fprintln(out, "\n"+failStyle.Render("Failed tests:"))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range failed {
		artifact := r.ArtifactPath
		if artifact == "" {
			artifact = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.TestName, r.ErrorMessage, artifact)
	}
	_ = tw.Flush()
}
