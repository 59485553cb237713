package oracle

import (
	"fmt"
	"strings"
)

// Metric selects the signal compared between the two bounds of a search interval.
type Metric int

const (
	// MetricPairs counts paired positions (opening brackets).
	MetricPairs Metric = iota
	// MetricHelices counts stacked stems.
	MetricHelices
	// MetricSegments uses the oracle's reported folded segment count.
	MetricSegments
	// MetricStructure compares the dot-bracket strings directly.
	MetricStructure
)

var metricNames = map[Metric]string{
	MetricPairs:     "pairs",
	MetricHelices:   "helices",
	MetricSegments:  "segments",
	MetricStructure: "structure",
}

// ParseMetric maps a configuration value to a Metric.
func ParseMetric(value string) (Metric, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return MetricPairs, nil
	}
	for m, name := range metricNames {
		if name == value {
			return m, nil
		}
	}
	return MetricPairs, fmt.Errorf("unknown metric %q", value)
}

func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return fmt.Sprintf("metric(%d)", int(m))
}

// Value returns the numeric complexity of o. MetricStructure reports the pair
// count; its divergence test uses the structure string instead.
func (m Metric) Value(o Outcome) int {
	switch m {
	case MetricHelices:
		return countHelices(o.Structure)
	case MetricSegments:
		return o.Segments
	default:
		return countPairs(o.Structure)
	}
}

// Diverged reports whether a and b differ under m.
func (m Metric) Diverged(a, b Outcome) bool {
	if m == MetricStructure {
		return a.Structure != b.Structure
	}
	return m.Value(a) != m.Value(b)
}

func countPairs(structure string) int {
	n := 0
	for i := 0; i < len(structure); i++ {
		switch structure[i] {
		case '(', '[', '{', '<':
			n++
		}
	}
	return n
}

var closers = map[byte]byte{')': '(', ']': '[', '}': '{', '>': '<'}

// pairTable maps every paired position to its partner and every unpaired or
// unbalanced position to -1.
func pairTable(structure string) []int {
	table := make([]int, len(structure))
	stacks := make(map[byte][]int, 4)
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(structure); i++ {
		c := structure[i]
		switch c {
		case '(', '[', '{', '<':
			stacks[c] = append(stacks[c], i)
		case ')', ']', '}', '>':
			open := closers[c]
			stack := stacks[open]
			if len(stack) == 0 {
				continue
			}
			j := stack[len(stack)-1]
			stacks[open] = stack[:len(stack)-1]
			table[i], table[j] = j, i
		}
	}
	return table
}

func countHelices(structure string) int {
	table := pairTable(structure)
	n := 0
	for i, j := range table {
		if j <= i {
			continue
		}
		// (i, j) starts a stem unless (i-1, j+1) is also a pair.
		if i > 0 && j+1 < len(table) && table[i-1] == j+1 {
			continue
		}
		n++
	}
	return n
}
