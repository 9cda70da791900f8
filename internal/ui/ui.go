// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the terminal styling helpers shared by every
// cortex subcommand: colorized headers, dimmed secondary text, and
// TTY-aware color disabling.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Color printers, reused across subcommands rather than constructed
// per call site.
var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Cyan   = color.New(color.FgCyan)
	Dim    = color.New(color.Faint)
	Bold   = color.New(color.Bold)
)

// InitColors disables color output when noColor is set or stdout is not
// a terminal, matching the teacher's NO_COLOR-aware startup behavior.
func InitColors(noColor bool) {
	if noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Header prints a bold section title.
func Header(title string) {
	Bold.Println(title)
}

// SubHeader prints a dimmed sub-section title, indented one level.
func SubHeader(title string) {
	Dim.Printf("  %s\n", title)
}

// Label renders a dimmed ":"-suffixed field label for aligned output.
func Label(name string) string {
	return Dim.Sprintf("%s:", name)
}

// DimText renders s in the faint style, for secondary/meta information.
func DimText(s string) string {
	return Dim.Sprint(s)
}

// CountText renders a count with pluralization-free, dimmed styling
// (e.g. "(42)").
func CountText(n int) string {
	return Dim.Sprintf("(%d)", n)
}

// Fprintln writes a colored line to w, ignoring the error (matches the
// teacher's fire-and-forget stderr progress style).
func Fprintln(w *os.File, c *color.Color, format string, args ...interface{}) {
	_, _ = c.Fprintln(w, fmt.Sprintf(format, args...))
}

// Success prints a green "ok" line to stdout.
func Success(msg string) { Green.Println(msg) }

// Successf is Success with Printf-style formatting.
func Successf(format string, args ...interface{}) { Green.Printf(format+"\n", args...) }

// Info prints a plain informational line to stdout.
func Info(msg string) { fmt.Println(msg) }

// Infof is Info with Printf-style formatting.
func Infof(format string, args ...interface{}) { fmt.Printf(format+"\n", args...) }

// Warning prints a yellow warning line to stderr.
func Warning(msg string) { Fprintln(os.Stderr, Yellow, "%s", msg) }

// Warningf is Warning with Printf-style formatting.
func Warningf(format string, args ...interface{}) { Fprintln(os.Stderr, Yellow, format, args...) }
