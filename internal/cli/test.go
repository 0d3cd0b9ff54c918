package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/wtas/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run playback scenarios",
		Long: `Run YAML playback scenarios against the headless host.

Each scenario plays scripts, sends controller commands at chosen host
steps and checks its assertions. When golden/<name>.golden exists next
to the scenarios, the frame trace must match it too.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  wtas test ./scenarios
  wtas test ./scenarios --filter "pause*"
  wtas test ./scenarios --update
  wtas test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}

	scenarios, err := harness.LoadDir(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, s := range scenarios {
		if opts.Filter != "" {
			if ok, _ := filepath.Match(opts.Filter, s.Name); !ok {
				continue
			}
		}
		scenResult := runScenario(s, dir, opts, cmd)
		result.Scenarios = append(result.Scenarios, scenResult)
		result.Total++
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	return reportTests(newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()), result)
}

// runScenario executes a single scenario and returns the result.
func runScenario(scenario *harness.Scenario, dir string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	p := newPalette(w)
	fail := func(errs ...string) ScenarioResult {
		if opts.Format != "json" {
			fmt.Fprintf(w, "%s %s\n", p.fail.Render("✗"), scenario.Name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: scenario.Name, Pass: false, Errors: errs}
	}
	pass := func(note string) ScenarioResult {
		if opts.Format != "json" {
			fmt.Fprintf(w, "%s %s%s\n", p.ok.Render("✓"), scenario.Name, note)
		}
		return ScenarioResult{Name: scenario.Name, Pass: true}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return fail(fmt.Sprintf("execution failed: %v", err))
	}
	rendered := harness.Render(scenario.Name, result)
	goldenPath := goldenFilePath(dir, scenario.Name)

	if opts.Update {
		if err := updateGoldenFile(goldenPath, rendered); err != nil {
			return fail(fmt.Sprintf("failed to update golden file: %v", err))
		}
		if !result.Pass {
			return fail(result.Errors...)
		}
		return pass(" (golden updated)")
	}

	golden, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		// No golden file - use assertion-based validation only
	case err != nil:
		return fail(fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(golden, rendered):
		return fail("trace does not match golden file (run with --update to regenerate)")
	}

	if !result.Pass {
		return fail(result.Errors...)
	}
	return pass("")
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(dir, name string) string {
	return filepath.Join(dir, "golden", name+".golden")
}

// updateGoldenFile writes the rendered trace as the golden file.
func updateGoldenFile(path string, rendered []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// reportTests prints the summary and turns failures into exit code 1.
func reportTests(f *OutputFormatter, result TestResult) error {
	var failed *ExitError
	if result.Failed > 0 {
		failed = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if f.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if failed != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeTest, Message: failed.Message}
		}
		if err := f.encode(resp); err != nil {
			return err
		}
	} else {
		p := newPalette(f.Writer)
		fmt.Fprintf(f.Writer, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
		switch {
		case failed != nil:
		case result.Total == 0:
			fmt.Fprintln(f.Writer, p.dim.Render("No scenarios matched."))
		default:
			fmt.Fprintln(f.Writer, p.ok.Render("✓ All scenarios passed"))
		}
	}

	if failed != nil {
		return failed
	}
	return nil
}
