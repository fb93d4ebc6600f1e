package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"matforge/internal/nucdata"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Work with nuclear data library files",
}

var libraryPackCmd = &cobra.Command{
	Use:   "pack <in.toml> <out.mpk>",
	Short: "Compile a TOML library into the binary snapshot format",
	Args:  cobra.ExactArgs(2),
	RunE:  runLibraryPack,
}

var libraryInfoCmd = &cobra.Command{
	Use:   "info <library>",
	Short: "List the nuclides and thermal tables of a library",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryInfo,
}

var libraryCacheClearCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Remove every compiled library from the cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cache, err := nucdata.OpenCache("matforge")
		if err != nil {
			return err
		}
		if err := cache.DropAll(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", cache.Dir())
		return nil
	},
}

func init() {
	libraryCmd.AddCommand(libraryPackCmd)
	libraryCmd.AddCommand(libraryInfoCmd)
	libraryCmd.AddCommand(libraryCacheClearCmd)
}

// loadLibrary reads a library file and checks every record.
func loadLibrary(path string) (*nucdata.Library, error) {
	snap, _, err := nucdata.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return nucdata.FromSnapshot(snap, nucdata.DefaultPolicy())
}

func runLibraryPack(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]
	if !strings.EqualFold(filepath.Ext(out), nucdata.ExtMsgpack) && !strings.EqualFold(filepath.Ext(out), nucdata.ExtTOML) {
		return fmt.Errorf("%s: output must end in %s or %s", out, nucdata.ExtMsgpack, nucdata.ExtTOML)
	}
	lib, err := loadLibrary(in)
	if err != nil {
		return err
	}
	if err := nucdata.WriteFile(out, lib.Snapshot()); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	if !quiet {
		st := lib.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "packed %d nuclide(s), %d thermal table(s) into %s\n", st.Nuclides, st.Thermal, out)
	}
	return nil
}

func runLibraryInfo(cmd *cobra.Command, args []string) error {
	lib, err := loadLibrary(args[0])
	if err != nil {
		return err
	}
	snap := lib.Snapshot()
	w := cmd.OutOrStdout()

	const nameWidth = 12
	fmt.Fprintf(w, "%s  %12s  %s\n", runewidth.FillRight("NUCLIDE", nameWidth), "G/MOL", "TEMPERATURES [K]")
	for _, n := range snap.Nuclides {
		fmt.Fprintf(w, "%s  %12.6f  %s\n", runewidth.FillRight(n.Name, nameWidth), n.MolarMass, joinFloats(n.Temperatures))
	}
	if len(snap.Thermal) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s  %s  %s\n", runewidth.FillRight("S(A,B)", nameWidth*2), runewidth.FillRight("NUCLIDES", nameWidth), "TEMPERATURES [K]")
		for _, t := range snap.Thermal {
			fmt.Fprintf(w, "%s  %s  %s\n",
				runewidth.FillRight(runewidth.Truncate(t.Name, nameWidth*2, "..."), nameWidth*2),
				runewidth.FillRight(strings.Join(t.Nuclides, ","), nameWidth),
				joinFloats(t.Temperatures))
		}
	}
	return nil
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, " ")
}
