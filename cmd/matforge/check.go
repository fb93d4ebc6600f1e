package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"matforge/internal/diagfmt"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [problem.toml|dir]",
	Short: "Validate a problem and report every diagnostic",
	Long: `Run the full setup and report every problem found. The exit status is
non-zero when any error was reported`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	addSetupFlags(checkCmd)
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
}

func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := diagfmt.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	strict, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}

	s, err := runSetup(cmd, argOrEmpty(args))
	if s == nil {
		return err
	}
	defer s.Close()

	warned := s.result.Bag.HasWarnings()
	if repErr := s.report(cmd.OutOrStdout(), format); repErr != nil {
		return repErr
	}
	if err != nil {
		return finish(err)
	}
	if strict && warned {
		return errReported
	}
	if !s.quiet && format == diagfmt.FormatPretty {
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d material(s), %d cell(s)\n", s.result.Registry.Len(), len(s.result.Cells))
	}
	return nil
}
