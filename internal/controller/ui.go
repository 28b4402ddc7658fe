// Package controller provides output adapters for displaying materialization results.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	m "github.com/kazie/pylint-pycharm/internal/model"
)

// UI defines how workflow results are presented.
type UI interface {
	DisplayMaterialized(ctx context.Context, files []m.MaterializedFile, skipped []m.Skipped)
	DisplayToolOutput(ctx context.Context, output string, err error)
	DisplayStatus(ctx context.Context, entries []m.Divergence)
	DisplaySwept(ctx context.Context, removed []m.Path)
}

// NewUI returns the UI for cmd. Colors are only used on a terminal.
func NewUI(cmd *cobra.Command, tty bool) UI {
	return NewSimpleUI(cmd, tty)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type palette struct {
	temporary func(a ...interface{}) string
	direct    func(a ...interface{}) string
	skipped   func(a ...interface{}) string
}

func newPalette(enabled bool) palette {
	build := func(attr color.Attribute) func(a ...interface{}) string {
		c := color.New(attr)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}

		return c.SprintFunc()
	}

	return palette{
		temporary: build(color.FgYellow),
		direct:    build(color.FgGreen),
		skipped:   build(color.FgRed),
	}
}

// newEmphasis returns a bold style bound to w. Without colors it renders
// plain text.
func newEmphasis(w io.Writer, enabled bool) lipgloss.Style {
	renderer := lipgloss.NewRenderer(w)
	if !enabled {
		renderer.SetColorProfile(termenv.Ascii)
	}

	return renderer.NewStyle().Bold(true)
}
