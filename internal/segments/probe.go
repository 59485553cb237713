package segments

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

type probeRoot struct {
	XMLName  xml.Name       `xml:"root"`
	Segments []probeSegment `xml:"segments>segment"`
}

type probeSegment struct {
	ID         string          `xml:"id"`
	FivePrime  string          `xml:"sequence_5prime"`
	Bonds      string          `xml:"bonds"`
	ThreePrime string          `xml:"sequence_3prime"`
	Energy     string          `xml:"energy"`
	Directions probeDirections `xml:"directions"`
}

type probeDirections struct {
	FivePrime  bool `xml:"five_prime"`
	ThreePrime bool `xml:"three_prime"`
}

// WriteProbeDocument renders a document holding only seg, with its energy
// rounded to four decimals.
func WriteProbeDocument(w io.Writer, seg Segment) error {
	doc := probeRoot{Segments: []probeSegment{{
		ID:         seg.ID,
		FivePrime:  seg.FivePrime,
		Bonds:      seg.Bonds,
		ThreePrime: seg.ThreePrime,
		Energy:     strconv.FormatFloat(RoundEnergy(seg.Energy), 'f', -1, 64),
		Directions: probeDirections{FivePrime: seg.Directions.FivePrime, ThreePrime: seg.Directions.ThreePrime},
	}}}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write probe document: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write probe document: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write probe document: %w", err)
	}
	return nil
}
