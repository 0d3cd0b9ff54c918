package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/script"
)

// ScriptReport is the validation outcome for one script file.
type ScriptReport struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Lines    int      `json:"lines,omitempty"`
	LastTick uint32   `json:"last_tick,omitempty"`
	Start    string   `json:"start,omitempty"`
	Hash     string   `json:"hash,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <script>...",
		Short: "Check scripts for syntax and ordering errors",
		Long: `Parse and validate one or more scripts.

Every error is reported with its line number, the same messages a
controller receives in ParseErrors.

Exit codes:
  0 - All scripts are valid
  1 - At least one script has errors
  2 - A file could not be read`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	reports := make([]ScriptReport, 0, len(files))
	invalid := 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read script", err)
		}
		formatter.VerboseLog("Validating %s (%d bytes)", file, len(data))

		report := checkScript(file, string(data))
		if !report.Valid {
			invalid++
		}
		reports = append(reports, report)
	}

	if formatter.JSON() {
		if invalid > 0 {
			if err := formatter.Error(ErrCodeScript, fmt.Sprintf("%d script(s) invalid", invalid), reports); err != nil {
				return err
			}
		} else if err := formatter.Success(reports, ""); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		p := newPalette(w)
		for _, r := range reports {
			if r.Valid {
				fmt.Fprintf(w, "%s %s %s\n", p.ok.Render("✓"), r.File,
					p.dim.Render(fmt.Sprintf("(%d lines, last tick %d, start %s)", r.Lines, r.LastTick, r.Start)))
				continue
			}
			fmt.Fprintf(w, "%s %s\n", p.fail.Render("✗"), r.File)
			for _, e := range r.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d script(s) invalid", invalid))
	}
	return nil
}

func checkScript(file, src string) ScriptReport {
	s, errs := script.Parse(src)
	if len(errs) > 0 {
		return ScriptReport{File: file, Errors: errs.Strings()}
	}

	report := ScriptReport{
		File:     file,
		Valid:    true,
		Lines:    len(s.Lines),
		LastTick: s.LastTick(),
		Start:    s.Start.Kind.String(),
	}
	if hash, err := ir.ScriptHash(s); err == nil {
		report.Hash = hash
	}
	return report
}
