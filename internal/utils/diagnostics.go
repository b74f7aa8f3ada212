package utils

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// DiagnosticLevel is how much the CLI prints
type DiagnosticLevel int

const (
	DiagnosticSilent DiagnosticLevel = iota
	DiagnosticError
	DiagnosticWarn
	DiagnosticInfo
	DiagnosticVerbose
	DiagnosticDebug
)

type messageStyle struct {
	tag    string
	color  color.Attribute
	stderr bool
}

var messageStyles = map[DiagnosticLevel]messageStyle{
	DiagnosticError:   {"ERROR", color.FgRed, true},
	DiagnosticWarn:    {"WARN", color.FgYellow, false},
	DiagnosticInfo:    {"INFO", color.FgBlue, false},
	DiagnosticVerbose: {"VERBOSE", color.FgHiBlack, false},
	DiagnosticDebug:   {"DEBUG", color.FgMagenta, false},
}

// DiagnosticSystem prints the CLI's progress and log lines
type DiagnosticSystem struct {
	level     DiagnosticLevel
	useColors bool
	showTime  bool
	output    io.Writer
	errorOut  io.Writer
}

func NewDiagnosticSystem(level DiagnosticLevel) *DiagnosticSystem {
	return NewDiagnosticSystemWithWriters(level, os.Stdout, os.Stderr)
}

// NewDiagnosticSystemWithWriters timestamps log lines from the verbose level up
func NewDiagnosticSystemWithWriters(level DiagnosticLevel, output, errorOut io.Writer) *DiagnosticSystem {
	return &DiagnosticSystem{
		level:     level,
		useColors: colorsEnabled(),
		showTime:  level >= DiagnosticVerbose,
		output:    output,
		errorOut:  errorOut,
	}
}

// SetColors overrides terminal detection
func (d *DiagnosticSystem) SetColors(enabled bool) {
	d.useColors = enabled
}

func (d *DiagnosticSystem) Error(format string, args ...interface{}) {
	d.log(DiagnosticError, format, args...)
}

func (d *DiagnosticSystem) Warn(format string, args ...interface{}) {
	d.log(DiagnosticWarn, format, args...)
}

func (d *DiagnosticSystem) Info(format string, args ...interface{}) {
	d.log(DiagnosticInfo, format, args...)
}

func (d *DiagnosticSystem) Verbose(format string, args ...interface{}) {
	d.log(DiagnosticVerbose, format, args...)
}

func (d *DiagnosticSystem) Debug(format string, args ...interface{}) {
	d.log(DiagnosticDebug, format, args...)
}

// Success is an info line tagged SUCCESS in green
func (d *DiagnosticSystem) Success(format string, args ...interface{}) {
	if d.level >= DiagnosticInfo {
		d.write(d.output, messageStyle{"SUCCESS", color.FgGreen, false}, format, args...)
	}
}

// NimbusHeader opens a run
func (d *DiagnosticSystem) NimbusHeader(message string) {
	d.progress(color.FgCyan, "", "Nimbus: "+message)
}

func (d *DiagnosticSystem) PhaseHeader(phase string) {
	d.progress(color.FgBlue, "", phase+":")
}

// PhaseItem reports a finished step
func (d *DiagnosticSystem) PhaseItem(message string) {
	d.progress(color.FgGreen, "✓ ", message)
}

// PhaseProgress reports a file being written
func (d *DiagnosticSystem) PhaseProgress(message string) {
	d.progress(color.FgMagenta, "✏ ", message)
}

func (d *DiagnosticSystem) GenerationComplete() {
	if d.level >= DiagnosticInfo {
		fmt.Fprintln(d.output)
	}
	d.progress(color.FgGreen, "", "Nimbus: Generation complete!")
}

// Summary prints stats in the order of keys
func (d *DiagnosticSystem) Summary(title string, keys []string, stats map[string]interface{}) {
	if d.level < DiagnosticInfo {
		return
	}
	fmt.Fprintf(d.output, "\n%s\n", title)
	for _, key := range keys {
		fmt.Fprintf(d.output, "   %s: %v\n", key, stats[key])
	}
	fmt.Fprintln(d.output)
}

// progress lines are shown from the info level and carry no level tag.
// With a marker only the marker is colored, otherwise the whole line.
func (d *DiagnosticSystem) progress(attr color.Attribute, marker, message string) {
	if d.level < DiagnosticInfo {
		return
	}
	if marker == "" {
		d.colored(attr).Fprintln(d.output, message)
		return
	}
	d.colored(attr).Fprint(d.output, marker)
	fmt.Fprintln(d.output, message)
}

func (d *DiagnosticSystem) log(level DiagnosticLevel, format string, args ...interface{}) {
	if d.level < level {
		return
	}
	style := messageStyles[level]
	out := d.output
	if style.stderr {
		out = d.errorOut
	}
	d.write(out, style, format, args...)
}

func (d *DiagnosticSystem) write(out io.Writer, style messageStyle, format string, args ...interface{}) {
	prefix := ""
	if d.showTime {
		prefix = time.Now().Format("15:04:05 ")
	}
	fmt.Fprintf(out, "%s%s %s\n", prefix, d.colored(style.color).Sprintf("[%s]", style.tag), fmt.Sprintf(format, args...))
}

func (d *DiagnosticSystem) colored(attr color.Attribute) *color.Color {
	c := color.New(attr)
	if d.useColors {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// colorsEnabled follows NO_COLOR, then FORCE_COLOR, then TERM
func colorsEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}
