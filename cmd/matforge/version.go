package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"matforge/internal/nucdata"
	"matforge/internal/units"
	"matforge/internal/version"
)

// versionPayload is what `matforge version --format=json` prints. Scripts
// check data_schema before handing a packed library to another build.
type versionPayload struct {
	Tool         string   `json:"tool"`
	Version      string   `json:"version"`
	Fingerprint  string   `json:"fingerprint"`
	DataSchema   uint16   `json:"data_schema"`
	Units        []string `json:"units"`
	DensityUnits []string `json:"density_units"`
	Avogadro     float64  `json:"avogadro"`
	CacheDir     string   `json:"cache_dir,omitempty"`
	GitCommit    string   `json:"git_commit,omitempty"`
	BuildDate    string   `json:"build_date,omitempty"`
}

var (
	versionFormat   string
	versionShowFull bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "add build metadata and the library cache location")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the matforge version and the library data schema it reads",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := collectVersion(versionShowFull)
		switch strings.ToLower(versionFormat) {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		case "pretty":
			renderVersionPretty(cmd.OutOrStdout(), payload)
			return nil
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}

func collectVersion(full bool) versionPayload {
	v := strings.TrimSpace(version.Version)
	if v == "" {
		v = "dev"
	}
	p := versionPayload{
		Tool:        "matforge",
		Version:     v,
		Fingerprint: version.Fingerprint(),
		DataSchema:  nucdata.SnapshotSchema,
		Avogadro:    units.Avogadro,
	}
	for u := units.AtomFraction; u <= units.MassDensity; u++ {
		p.Units = append(p.Units, u.String())
	}
	for u := units.GramPerCC; u <= units.DensitySum; u++ {
		p.DensityUnits = append(p.DensityUnits, u.String())
	}
	if !full {
		return p
	}
	p.GitCommit = valueOrUnknown(version.GitCommit)
	p.BuildDate = valueOrUnknown(version.BuildDate)
	if dir, err := nucdata.CacheDir("matforge"); err == nil {
		p.CacheDir = dir
	} else {
		p.CacheDir = "unavailable: " + err.Error()
	}
	return p
}

func renderVersionPretty(out io.Writer, p versionPayload) {
	fmt.Fprintf(out, "matforge %s\n", version.Colored())
	fmt.Fprintf(out, "library schema: %d\n", p.DataSchema)
	fmt.Fprintf(out, "units:          %s\n", strings.Join(p.Units, ", "))
	fmt.Fprintf(out, "density units:  %s\n", strings.Join(p.DensityUnits, ", "))
	fmt.Fprintf(out, "avogadro:       %g /mol\n", p.Avogadro)
	if p.CacheDir == "" {
		return
	}
	fmt.Fprintf(out, "commit:         %s\n", p.GitCommit)
	fmt.Fprintf(out, "built:          %s\n", p.BuildDate)
	fmt.Fprintf(out, "cache:          %s\n", p.CacheDir)
}

func valueOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
