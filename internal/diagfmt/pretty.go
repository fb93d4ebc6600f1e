package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"matforge/internal/diag"
)

type palette struct {
	err, warn, info, code, loc, note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan),
		code: color.New(color.Bold),
		loc:  color.New(color.FgBlue),
		note: color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.loc, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
//
//	<SEV>[<CODE>]: <Message>
//	  --> <file>: material <id>: nuclide <name>
//	   = note: <msg>
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) {
	if bag == nil {
		return
	}
	p := newPalette(opts.Color)
	var b strings.Builder
	for _, d := range bag.Items() {
		b.WriteString(p.severity(d.Severity).Sprint(strings.ToLower(d.Severity.String())))
		b.WriteString(p.code.Sprintf("[%s]", d.Code.ID()))
		b.WriteString(": ")
		b.WriteString(d.Message)
		b.WriteString("\n")
		if at := location(d.Primary, opts.PathMode, opts.BaseDir); at != "" {
			fmt.Fprintf(&b, "  %s %s\n", p.loc.Sprint("-->"), at)
		}
		if opts.ShowNotes || d.Code == diag.ObsTimings {
			for _, n := range d.Notes {
				fmt.Fprintf(&b, "   %s %s\n", p.note.Sprint("= note:"), noteText(n, d.Primary, opts.PathMode, opts.BaseDir))
			}
		}
		b.WriteString("\n")
	}
	if opts.Summary {
		b.WriteString(summary(bag))
		b.WriteString("\n")
	}
	_, _ = io.WriteString(w, b.String())
}

// Short prints one line per diagnostic:
//
//	<location>: <severity> <CODE>: <message>
func Short(w io.Writer, bag *diag.Bag, mode PathMode) {
	if bag == nil {
		return
	}
	var b strings.Builder
	for _, d := range bag.Items() {
		if at := location(d.Primary, mode, ""); at != "" {
			b.WriteString(at)
			b.WriteString(": ")
		}
		fmt.Fprintf(&b, "%s %s: %s\n", strings.ToLower(d.Severity.String()), d.Code.ID(), d.Message)
	}
	_, _ = io.WriteString(w, b.String())
}

func location(at diag.Location, mode PathMode, baseDir string) string {
	at.File = formatPath(at.File, mode, baseDir)
	return at.String()
}

// noteText drops the location of a note that repeats the primary one.
func noteText(n diag.Note, primary diag.Location, mode PathMode, baseDir string) string {
	if n.At == primary || n.At.IsZero() {
		return n.Msg
	}
	if n.At.Material == 0 && n.At.Nuclide == "" && n.At.File == primary.File {
		return n.Msg
	}
	return location(n.At, mode, baseDir) + ": " + n.Msg
}

func summary(bag *diag.Bag) string {
	var errs, warns int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	return fmt.Sprintf("%d error(s), %d warning(s)", errs, warns)
}
