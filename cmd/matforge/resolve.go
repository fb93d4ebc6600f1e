package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"matforge/internal/diagfmt"
	"matforge/internal/material"
	"matforge/internal/setup"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [flags] [problem.toml|dir]",
	Short: "Resolve every material and print its atomic densities",
	Long: `Load the nuclear data libraries and the problem description, resolve every
material into atomic densities, link cells to materials and print a summary`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	addSetupFlags(resolveCmd)
	resolveCmd.Flags().String("format", "table", "output format (table|json)")
}

type resolveOutput struct {
	Problem   string          `json:"problem"`
	Digest    string          `json:"digest"`
	Materials []materialJSON  `json:"materials"`
	Cells     []cellJSON      `json:"cells,omitempty"`
	Timings   json.RawMessage `json:"timings,omitempty"`
}

type materialJSON struct {
	ID           int32    `json:"id"`
	Name         string   `json:"name,omitempty"`
	Nuclides     int      `json:"nuclides"`
	Traces       int      `json:"traces,omitempty"`
	Temperature  float64  `json:"temperature"`
	Volume       *float64 `json:"volume,omitempty"`
	AtomDensity  float64  `json:"atom_density"`
	MassDensity  float64  `json:"mass_density"`
	MolarMass    float64  `json:"molar_mass"`
	ThermalBound int      `json:"thermal_bound,omitempty"`
	Fallbacks    int      `json:"fallbacks,omitempty"`
}

type cellJSON struct {
	ID       int32 `json:"id"`
	Material int32 `json:"material"`
	Index    int32 `json:"index"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q (expected table|json)", format)
	}

	s, err := runSetup(cmd, argOrEmpty(args))
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

	jobs, _ := cmd.Flags().GetInt("jobs")
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	summaries, err := setup.Survey(cmd.Context(), s.result.Registry, jobs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		if err := writeResolveJSON(out, s, summaries); err != nil {
			return err
		}
	} else {
		writeMaterialTable(out, summaries)
		if !s.quiet {
			fmt.Fprintf(out, "\n%d material(s), %d cell(s), digest %s\n",
				len(summaries), len(s.result.Cells), s.result.Registry.Digest().Short())
		}
	}
	// warnings and timings go to stderr so stdout stays machine readable
	return s.report(os.Stderr, diagfmt.FormatPretty)
}

func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func writeResolveJSON(w io.Writer, s *session, summaries []setup.Summary) error {
	res := s.result
	payload := resolveOutput{
		Problem:   s.path,
		Digest:    res.Registry.Digest().Hex(),
		Materials: make([]materialJSON, len(summaries)),
	}
	for i, sum := range summaries {
		m := materialJSON{
			ID:           sum.ID,
			Name:         sum.Name,
			Nuclides:     sum.Nuclides,
			Traces:       sum.Traces,
			Temperature:  sum.Temperature,
			AtomDensity:  sum.AtomDensity,
			MassDensity:  sum.MassDensity,
			MolarMass:    sum.MolarMass,
			ThermalBound: sum.ThermalBound,
			Fallbacks:    sum.Fallbacks,
		}
		if sum.Volume != material.VolumeUnset {
			v := sum.Volume
			m.Volume = &v
		}
		payload.Materials[i] = m
	}
	for i, c := range res.Problem.Cells {
		idx := res.Cells[i]
		payload.Cells = append(payload.Cells, cellJSON{ID: c.ID, Material: c.Material, Index: int32(idx)})
	}
	if s.timings {
		data, err := json.Marshal(s.timer.Report())
		if err != nil {
			return err
		}
		payload.Timings = data
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// writeMaterialTable prints one row per material. Names are padded by display
// width so wide characters keep the columns aligned.
func writeMaterialTable(w io.Writer, summaries []setup.Summary) {
	const nameWidth = 20
	fmt.Fprintf(w, "%6s  %s  %8s  %7s  %11s  %7s  %8s  %6s  %8s\n",
		"ID", runewidth.FillRight("NAME", nameWidth), "NUCLIDES", "T [K]", "ATOMS/B-CM", "G/CM3", "G/MOL", "S(A,B)", "FALLBACK")
	for _, s := range summaries {
		name := s.Name
		if name == "" {
			name = "-"
		}
		name = runewidth.FillRight(runewidth.Truncate(name, nameWidth, "..."), nameWidth)
		fmt.Fprintf(w, "%6s  %s  %8d  %7.1f  %11.5e  %7.4f  %8.3f  %6d  %8d\n",
			strconv.FormatInt(int64(s.ID), 10), name, s.Nuclides, s.Temperature,
			s.AtomDensity, s.MassDensity, s.MolarMass, s.ThermalBound, s.Fallbacks)
	}
}
