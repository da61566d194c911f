// Package report prints the operator-facing progress lines of a fetch run.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Printer writes progress messages to an output stream.
type Printer struct {
	w io.Writer

	info    *color.Color
	success *color.Color
	path    *color.Color
	header  *color.Color
}

// New returns a Printer writing to w. Colors are used only when w is stdout
// and stdout is a terminal without NO_COLOR set.
func New(w io.Writer) *Printer {
	p := &Printer{
		w:       w,
		info:    color.New(color.FgGreen),
		success: color.New(color.FgHiGreen, color.Bold),
		path:    color.New(color.FgCyan),
		header:  color.New(color.FgYellow),
	}
	if w != os.Stdout || color.NoColor {
		for _, c := range []*color.Color{p.info, p.success, p.path, p.header} {
			c.DisableColor()
		}
	}
	return p
}

// Start announces the collection being fetched.
func (p *Printer) Start(collectionID string) {
	fmt.Fprintf(p.w, "%s\n", p.info.Sprintf("Downloading files from %s...", collectionID))
}

// Downloaded reports one entry copied to dest.
func (p *Printer) Downloaded(entry, dest string) {
	fmt.Fprintf(p.w, "Downloaded %s to %s\n", entry, p.path.Sprint(dest))
}

// Complete prints the completion summary naming the raw directory.
func (p *Printer) Complete(rawDir string) {
	fmt.Fprintf(p.w, "\n%s\n", p.success.Sprint("Download complete!"))
	fmt.Fprintf(p.w, "Files saved to %s\n", p.path.Sprint(rawDir))
	fmt.Fprintf(p.w, "\n%s\n", p.header.Sprint("Next steps:"))
	fmt.Fprintln(p.w, "1. Explore the raw data in the Jupyter notebooks")
	fmt.Fprintln(p.w, "2. Run data processing scripts to prepare the data for analysis")
}
