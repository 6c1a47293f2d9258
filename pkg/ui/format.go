package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Format selects how command results are written.
type Format int

const (
	// FormatAuto picks terminal or text depending on where output goes.
	FormatAuto Format = iota
	// FormatTerminal colors plans, states and targets.
	FormatTerminal
	// FormatText is the same layout without styling, for logs and pipes.
	FormatText
	// FormatJSON and FormatYAML emit the result structs for scripts.
	FormatJSON
	FormatYAML
)

// formatNames maps every accepted --format value; the first name listed
// for a format is its canonical one.
var formatNames = []struct {
	name   string
	format Format
}{
	{"auto", FormatAuto},
	{"term", FormatTerminal},
	{"terminal", FormatTerminal},
	{"text", FormatText},
	{"plain", FormatText},
	{"json", FormatJSON},
	{"yaml", FormatYAML},
	{"yml", FormatYAML},
}

func (f Format) String() string {
	for _, n := range formatNames {
		if n.format == f {
			return n.name
		}
	}
	return "unknown"
}

// ParseFormat reads a --format value. Empty means auto.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatAuto, nil
	}
	var names []string
	for _, n := range formatNames {
		if n.name == s {
			return n.format, nil
		}
		names = append(names, n.name)
	}
	return FormatAuto, fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(names, ", "))
}

// DetectFormat resolves auto for output: styled only on a color-capable
// terminal, and never when NO_COLOR is set or TERM is dumb.
func DetectFormat(output *os.File) Format {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return FormatText
	}
	if output == nil {
		return FormatText
	}
	fd := output.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return FormatText
	}
	if termenv.ColorProfile() == termenv.Ascii {
		return FormatText
	}
	return FormatTerminal
}
