package segments

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"energysplit/internal/services"
)

type xmlRoot struct {
	XMLName  xml.Name     `xml:"root"`
	Segments []xmlSegment `xml:"segments>segment"`
	RNAs     []xmlRNA     `xml:"rnas>rna"`
}

type xmlSegment struct {
	ID         string         `xml:"id"`
	FivePrime  string         `xml:"sequence_5prime"`
	Bonds      string         `xml:"bonds"`
	ThreePrime string         `xml:"sequence_3prime"`
	Energy     string         `xml:"energy"`
	Directions *xmlDirections `xml:"directions"`
}

type xmlDirections struct {
	FivePrime  string `xml:"five_prime"`
	ThreePrime string `xml:"three_prime"`
}

type xmlRNA struct {
	Title      string         `xml:"title"`
	Organism   string         `xml:"organism"`
	Sequence   string         `xml:"sequence"`
	Structures []xmlStructure `xml:"structures>structure"`
}

type xmlStructure struct {
	Links      []string `xml:"associated_segments>link"`
	DotBracket string   `xml:"dot_bracket"`
}

// Load reads and validates the segment document at path.
func Load(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfigParse, "segments", "open", path, err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse decodes a segment document. Every structural problem is reported as
// services.ErrConfigParse.
func Parse(r io.Reader) (*Document, error) {
	var root xmlRoot
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, parseErr("decode", "malformed xml", err)
	}

	doc := &Document{index: make(map[string]int, len(root.Segments))}
	for i, raw := range root.Segments {
		seg, err := raw.toSegment(i)
		if err != nil {
			return nil, err
		}
		if _, dup := doc.index[seg.ID]; dup {
			return nil, parseErr("segment", fmt.Sprintf("duplicate segment id %q", seg.ID), nil)
		}
		doc.index[seg.ID] = len(doc.Segments)
		doc.Segments = append(doc.Segments, seg)
	}

	for i, raw := range root.RNAs {
		target, err := raw.toTarget(i)
		if err != nil {
			return nil, err
		}
		for _, link := range target.AssociatedSegments() {
			if _, ok := doc.index[link]; !ok {
				return nil, parseErr("rna", fmt.Sprintf("%s links unknown segment %q", target.Name, link), nil)
			}
		}
		doc.Targets = append(doc.Targets, target)
	}
	return doc, nil
}

func (raw xmlSegment) toSegment(position int) (Segment, error) {
	seg := Segment{
		ID:         strings.TrimSpace(raw.ID),
		FivePrime:  strings.TrimSpace(raw.FivePrime),
		ThreePrime: strings.TrimSpace(raw.ThreePrime),
		Bonds:      strings.TrimSpace(raw.Bonds),
		Directions: Directions{FivePrime: true, ThreePrime: true},
	}
	if seg.ID == "" {
		return Segment{}, parseErr("segment", fmt.Sprintf("segment %d: missing id", position+1), nil)
	}
	required := []struct{ field, value string }{
		{"sequence_5prime", seg.FivePrime},
		{"bonds", seg.Bonds},
		{"sequence_3prime", seg.ThreePrime},
	}
	for _, r := range required {
		if r.value == "" {
			return Segment{}, parseErr("segment", fmt.Sprintf("segment %s: missing %s", seg.ID, r.field), nil)
		}
	}
	energy := strings.TrimSpace(raw.Energy)
	if energy == "" {
		return Segment{}, parseErr("segment", fmt.Sprintf("segment %s: missing energy", seg.ID), nil)
	}
	value, err := strconv.ParseFloat(energy, 64)
	if err != nil {
		return Segment{}, parseErr("segment", fmt.Sprintf("segment %s: energy %q", seg.ID, energy), err)
	}
	seg.Energy = value

	if raw.Directions != nil {
		if seg.Directions.FivePrime, err = parseDirection(raw.Directions.FivePrime); err != nil {
			return Segment{}, parseErr("segment", fmt.Sprintf("segment %s: five_prime", seg.ID), err)
		}
		if seg.Directions.ThreePrime, err = parseDirection(raw.Directions.ThreePrime); err != nil {
			return Segment{}, parseErr("segment", fmt.Sprintf("segment %s: three_prime", seg.ID), err)
		}
	}
	return seg, nil
}

func parseDirection(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return true, nil
	}
	return strconv.ParseBool(value)
}

func (raw xmlRNA) toTarget(position int) (Target, error) {
	target := Target{
		Name:     strings.TrimSpace(raw.Title),
		Organism: strings.TrimSpace(raw.Organism),
		Sequence: NormalizeSequence(raw.Sequence),
	}
	if target.Name == "" {
		return Target{}, parseErr("rna", fmt.Sprintf("rna %d: missing title", position+1), nil)
	}
	if !IsRNA(target.Sequence) {
		return Target{}, parseErr("rna", fmt.Sprintf("%s: sequence is empty or contains non-ACGU characters", target.Name), nil)
	}
	for _, st := range raw.Structures {
		structure := Structure{DotBracket: strings.TrimSpace(st.DotBracket)}
		for _, link := range st.Links {
			if link = strings.TrimSpace(link); link != "" {
				structure.Links = append(structure.Links, link)
			}
		}
		target.Structures = append(target.Structures, structure)
	}
	return target, nil
}

func parseErr(operation, message string, err error) error {
	return services.Wrap(services.ErrConfigParse, "segments", operation, message, err)
}
