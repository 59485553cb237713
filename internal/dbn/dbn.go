// Package dbn reads and writes transition results in an extended dot-bracket
// format: a ">header" line, the sequence line, then one
// "structure_max<TAB>structure_min<TAB>energy" line per transition.
package dbn

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"energysplit/internal/bisect"
	"energysplit/internal/services"
)

// Entry is one searched sequence and its transitions.
type Entry struct {
	Header      string
	Sequence    string
	Transitions []bisect.Transition
}

// Writer buffers entries onto an io.Writer.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteEntry writes e. Output is buffered until Flush.
func (w *Writer) WriteEntry(e Entry) error {
	var b strings.Builder
	b.WriteByte('>')
	b.WriteString(e.Header)
	b.WriteByte('\n')
	b.WriteString(e.Sequence)
	b.WriteByte('\n')
	for _, t := range e.Transitions {
		b.WriteString(t.StructureMax)
		b.WriteByte('\t')
		b.WriteString(t.StructureMin)
		b.WriteByte('\t')
		b.WriteString(FormatEnergy(t.Energy))
		b.WriteByte('\n')
	}
	if _, err := w.w.WriteString(b.String()); err != nil {
		return fmt.Errorf("write entry %q: %w", e.Header, err)
	}
	return nil
}

// Flush writes any buffered output.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	return nil
}

// FormatEnergy renders an energy with the shortest representation that
// round-trips.
func FormatEnergy(e float64) string {
	return strconv.FormatFloat(e, 'f', -1, 64)
}

// Parse reads entries written by Writer.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		entries []Entry
		current *Entry
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] == '>' {
			entries = append(entries, Entry{Header: strings.TrimSpace(line[1:])})
			current = &entries[len(entries)-1]
			continue
		}
		if current == nil {
			return nil, parseErr(lineNo, "content before first header")
		}
		if current.Sequence == "" {
			current.Sequence = strings.TrimSpace(line)
			continue
		}
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) != 3 {
			return nil, parseErr(lineNo, fmt.Sprintf("expected 3 tab-separated fields, got %d", len(fields)))
		}
		energy, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, parseErr(lineNo, fmt.Sprintf("energy %q is not a number", fields[2]))
		}
		current.Transitions = append(current.Transitions, bisect.Transition{
			StructureMax: fields[0],
			StructureMin: fields[1],
			Energy:       energy,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrConfigParse, "dbn", "read", "", err)
	}
	return entries, nil
}

func parseErr(line int, msg string) error {
	return services.Wrap(services.ErrConfigParse, "dbn", "parse", fmt.Sprintf("line %d: %s", line, msg), nil)
}

// FilterByEnergy splits transitions at threshold. An entry appears in atLeast
// with its transitions at or above threshold and in below with the rest.
// Entries without transitions go to below.
func FilterByEnergy(entries []Entry, threshold float64) (atLeast, below []Entry) {
	for _, e := range entries {
		var hi, lo []bisect.Transition
		for _, t := range e.Transitions {
			if t.Energy >= threshold {
				hi = append(hi, t)
			} else {
				lo = append(lo, t)
			}
		}
		if len(hi) > 0 {
			atLeast = append(atLeast, Entry{Header: e.Header, Sequence: e.Sequence, Transitions: hi})
		}
		if len(lo) > 0 || len(hi) == 0 {
			below = append(below, Entry{Header: e.Header, Sequence: e.Sequence, Transitions: lo})
		}
	}
	return atLeast, below
}
