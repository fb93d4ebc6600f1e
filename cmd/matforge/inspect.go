package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"matforge/internal/diagfmt"
	"matforge/internal/material"
	"matforge/internal/nuclide"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] [problem.toml|dir] <material-id>",
	Short: "Print the resolved constituents of one material",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runInspect,
}

func init() {
	addSetupFlags(inspectCmd)
	inspectCmd.Flags().String("format", "table", "output format (table|json)")
}

type entryJSON struct {
	Nuclide     string  `json:"nuclide"`
	ZAID        int     `json:"zaid"`
	Density     float64 `json:"density"`
	Fraction    float64 `json:"fraction"`
	Trace       bool    `json:"trace,omitempty"`
	DataTemp    float64 `json:"data_temperature"`
	ThermalLaw  string  `json:"thermal_law,omitempty"`
	ThermalTemp float64 `json:"thermal_temperature,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q (expected table|json)", format)
	}

	idArg := args[len(args)-1]
	id, err := strconv.ParseInt(idArg, 10, 32)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid material id %q", idArg)
	}

	problemArg := ""
	if len(args) == 2 {
		problemArg = args[0]
	}
	s, err := runSetup(cmd, problemArg)
	if s == nil {
		return err
	}
	defer s.Close()
	if err != nil {
		if repErr := s.report(os.Stderr, diagfmt.FormatPretty); repErr != nil {
			return repErr
		}
		return finish(err)
	}

	reg := s.result.Registry
	idx, err := reg.Lookup(int32(id))
	if err != nil {
		return err
	}
	rec := reg.Get(idx)
	entries := collectEntries(rec)

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return err
		}
	} else {
		writeRecord(out, rec, entries)
	}
	return s.report(os.Stderr, diagfmt.FormatPretty)
}

func collectEntries(rec *material.Record) []entryJSON {
	total := rec.TotalAtomicDensity()
	out := make([]entryJSON, 0, rec.Len())
	for e := range rec.Entries() {
		ej := entryJSON{Nuclide: e.Name, Density: e.Density, Trace: e.Trace}
		if info, err := nuclide.Parse(e.Name); err == nil {
			ej.ZAID = info.ZAID()
		}
		if total > 0 {
			ej.Fraction = e.Density / total
		}
		if e.Data != nil {
			ej.DataTemp = e.Data.Temperature
		}
		if e.Law != nil {
			ej.ThermalLaw = e.Law.Name
			ej.ThermalTemp = e.Law.Temperature
		}
		out = append(out, ej)
	}
	return out
}

func writeRecord(w io.Writer, rec *material.Record, entries []entryJSON) {
	title := "material " + strconv.FormatInt(int64(rec.ID()), 10)
	if rec.Name() != "" {
		title += " (" + rec.Name() + ")"
	}
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "  temperature   %g K\n", rec.Temperature())
	fmt.Fprintf(w, "  density       %.6e atoms/b-cm, %.6g g/cm3\n", rec.TotalAtomicDensity(), rec.MassDensity())
	fmt.Fprintf(w, "  molar mass    %.4f g/mol\n", rec.MolarMass())
	if rec.HasVolume() {
		fmt.Fprintf(w, "  volume        %g cm3\n", rec.Volume())
	}
	if rec.Depletable() {
		fmt.Fprintln(w, "  depletable    yes")
	}
	if tables := rec.ThermalTables(); len(tables) > 0 {
		fmt.Fprintf(w, "  s(a,b)        %s\n", strings.Join(tables, ", "))
	}
	fmt.Fprintln(w)

	const nameWidth = 10
	fmt.Fprintf(w, "  %s  %8s  %13s  %9s  %7s  %s\n",
		runewidth.FillRight("NUCLIDE", nameWidth), "ZAID", "ATOMS/B-CM", "FRACTION", "DATA K", "THERMAL")
	for _, e := range entries {
		law := "-"
		if e.ThermalLaw != "" {
			law = fmt.Sprintf("%s @ %g K", e.ThermalLaw, e.ThermalTemp)
		}
		name := e.Nuclide
		if e.Trace {
			name += "*"
		}
		fmt.Fprintf(w, "  %s  %8d  %13.6e  %9.6f  %7.1f  %s\n",
			runewidth.FillRight(name, nameWidth), e.ZAID, e.Density, e.Fraction, e.DataTemp, law)
	}
	for _, fb := range rec.Fallbacks() {
		what := fb.Nuclide
		if fb.Law != "" {
			what += " (" + fb.Law + ")"
		}
		fmt.Fprintf(w, "  fallback: %s requested %g K, using %g K\n", what, fb.Requested, fb.Selected)
	}
}
