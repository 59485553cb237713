package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"energysplit/internal/estimaterun"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusError
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

// titleCase builds a fresh Caser per call; Casers carry state.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := "[" + statusKindLabel(kind) + "]"
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

// renderSectionHeader title-cases the heading and underlines it.
func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", titleCase(strings.TrimSpace(title)))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderRunSummary prints the run tallies and, when units failed, a table of
// the failures.
func renderRunSummary(w io.Writer, s *estimaterun.Summary) {
	colorize := shouldColorize(w)
	destination := s.OutputPath
	if destination == "" || destination == "-" {
		destination = "stdout"
	}
	kind := statusOK
	if len(s.Failed) > 0 {
		kind = statusError
	}
	fmt.Fprintln(w, renderStatusLine("Run "+shortID(s.RunID), kind,
		fmt.Sprintf("%s, %s written to %s in %s",
			plural(s.Units, "unit"), plural(s.Transitions, "transition"), destination, s.Elapsed.Round(time.Millisecond)),
		colorize))
	fmt.Fprintln(w, renderStatusLine("Seed", statusInfo, formatSeed(s.Seed), colorize))
	if len(s.Failed) == 0 {
		return
	}

	for _, line := range renderSectionHeader("failed combinations", colorize) {
		fmt.Fprintln(w, line)
	}
	rows := make([][]string, 0, len(s.Failed))
	for _, r := range s.Failed {
		rows = append(rows, []string{
			r.Name,
			r.Segment.ID,
			replicateLabel(r.Replicate),
			strconv.Itoa(r.Stats.Probes),
			r.Err.Error(),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Sequence", "Segment", "Replicate", "Probes", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}

func replicateLabel(replicate int) string {
	if replicate <= 0 {
		return "-"
	}
	return strconv.Itoa(replicate)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
