package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// NewLogger creates a text slog.Logger writing to w
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Console prints human-facing progress lines
type Console struct {
	out   io.Writer
	green func(a ...any) string
	red   func(a ...any) string
	dim   func(a ...any) string
}

// NewConsole creates a console on out. Colors are only used on terminals.
func NewConsole(out io.Writer) *Console {
	if f, ok := out.(*os.File); !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		color.NoColor = true
	}
	return &Console{
		out:   out,
		green: color.New(color.FgGreen).SprintFunc(),
		red:   color.New(color.FgRed).SprintFunc(),
		dim:   color.New(color.Faint).SprintFunc(),
	}
}

// Step prints a "→" progress line
func (c *Console) Step(format string, args ...any) {
	fmt.Fprintf(c.out, "  %s %s\n", c.dim("→"), fmt.Sprintf(format, args...))
}

// Success prints a "✓" line
func (c *Console) Success(format string, args ...any) {
	fmt.Fprintf(c.out, "%s %s\n", c.green("✓"), fmt.Sprintf(format, args...))
}

// Failure prints a "✗" line
func (c *Console) Failure(format string, args ...any) {
	fmt.Fprintf(c.out, "%s %s\n", c.red("✗"), fmt.Sprintf(format, args...))
}

// Println prints a plain line
func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}
