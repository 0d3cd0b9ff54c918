package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/wtas/internal/script"
)

// FmtOptions holds flags for the fmt command.
type FmtOptions struct {
	*RootOptions
	Write bool
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FmtOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fmt <script>",
		Short: "Print a script in canonical form",
		Long: `Rewrite a script with absolute ticks and canonical spacing.

Comments and blank lines are dropped. The output parses to the same
lines as the input.

Examples:
  wtas fmt route.wtas
  wtas fmt -w route.wtas`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "write the result back to the file")

	return cmd
}

func runFmt(opts *FmtOptions, file string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	data, err := os.ReadFile(file)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read script", err)
	}

	s, errs := script.Parse(string(data))
	if len(errs) > 0 {
		if err := formatter.Error(ErrCodeScript, fmt.Sprintf("%s has %d error(s)", file, len(errs)), errs.Strings()); err != nil {
			return err
		}
		if !formatter.JSON() {
			for _, e := range errs {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e.Error())
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s is not a valid script", file))
	}

	out := script.Format(s)
	if !opts.Write {
		return formatter.Success(map[string]string{"file": file, "source": out}, out[:len(out)-1])
	}

	info, err := os.Stat(file)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to stat script", err)
	}
	if err := os.WriteFile(file, []byte(out), info.Mode().Perm()); err != nil {
		return WrapExitError(ExitCommandError, "failed to write script", err)
	}
	formatter.VerboseLog("Rewrote %s", file)
	p := newPalette(cmd.OutOrStdout())
	return formatter.Success(map[string]string{"file": file}, fmt.Sprintf("%s %s", p.ok.Render("✓"), file))
}
