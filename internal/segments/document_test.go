package segments_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"energysplit/internal/segments"
	"energysplit/internal/services"
)

const sampleDocument = `<?xml version="1.0" encoding="UTF-8"?>
<root>
	<segments>
		<segment>
			<id>Kt-7</id>
			<sequence_5prime>CGU GAU</sequence_5prime>
			<bonds>xxx..x</bonds>
			<sequence_3prime>UGA</sequence_3prime>
			<energy>-6.0</energy>
			<directions>
				<five_prime>true</five_prime>
				<three_prime>false</three_prime>
			</directions>
		</segment>
		<segment>
			<id>cd_box</id>
			<sequence_5prime>UGAUGA</sequence_5prime>
			<bonds>xxxx</bonds>
			<sequence_3prime>CUGA</sequence_3prime>
			<energy>-3.5</energy>
		</segment>
	</segments>
	<rnas>
		<rna>
			<title>SNORD13</title>
			<organism>Homo sapiens</organism>
			<sequence>gcuc ugacc"gaaaggcgugaugagc</sequence>
			<structures>
				<structure>
					<associated_segments>
						<link>cd_box</link>
						<link>Kt-7</link>
					</associated_segments>
					<dot_bracket>((....))</dot_bracket>
				</structure>
				<structure>
					<associated_segments>
						<link>Kt-7</link>
					</associated_segments>
				</structure>
			</structures>
		</rna>
		<rna>
			<title>orphan</title>
			<sequence>ACGT</sequence>
			<structures/>
		</rna>
	</rnas>
</root>`

func TestParseDocument(t *testing.T) {
	doc, err := segments.Parse(strings.NewReader(sampleDocument))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(doc.Segments) != 2 || doc.Segments[0].ID != "Kt-7" || doc.Segments[1].ID != "cd_box" {
		t.Fatalf("unexpected segments: %+v", doc.Segments)
	}
	kt, ok := doc.Segment("Kt-7")
	if !ok {
		t.Fatal("expected Kt-7 lookup to succeed")
	}
	if kt.Energy != -6.0 || kt.Bonds != "xxx..x" || kt.FivePrime != "CGU GAU" {
		t.Fatalf("unexpected segment fields: %+v", kt)
	}
	if !kt.Directions.FivePrime || kt.Directions.ThreePrime {
		t.Fatalf("unexpected directions: %+v", kt.Directions)
	}
	cd, _ := doc.Segment("cd_box")
	if !cd.Directions.FivePrime || !cd.Directions.ThreePrime {
		t.Fatalf("directions should default to true: %+v", cd.Directions)
	}
	if _, ok := doc.Segment("missing"); ok {
		t.Fatal("expected lookup of unknown id to fail")
	}

	if len(doc.Targets) != 2 {
		t.Fatalf("expected two targets, got %d", len(doc.Targets))
	}
	snord := doc.Targets[0]
	if snord.Sequence != "GCUCUGACCGAAAGGCGUGAUGAGC" {
		t.Fatalf("sequence not normalized: %q", snord.Sequence)
	}
	if snord.Organism != "Homo sapiens" || snord.Structures[0].DotBracket != "((....))" {
		t.Fatalf("unexpected target fields: %+v", snord)
	}
	if got := snord.AssociatedSegments(); strings.Join(got, ",") != "cd_box,Kt-7" {
		t.Fatalf("unexpected associated segments: %v", got)
	}
	if got := doc.Targets[1].AssociatedSegments(); len(got) != 0 {
		t.Fatalf("expected no links for orphan, got %v", got)
	}
	if doc.Targets[1].Sequence != "ACGU" {
		t.Fatalf("expected T mapped to U, got %q", doc.Targets[1].Sequence)
	}
}

func TestWithEnergyDoesNotMutate(t *testing.T) {
	seg := segments.Segment{ID: "a", Energy: -1}
	moved := seg.WithEnergy(12.5)
	if seg.Energy != -1 || moved.Energy != 12.5 || moved.ID != "a" {
		t.Fatalf("unexpected energies: original %v copy %v", seg.Energy, moved.Energy)
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	segment := func(id, energy string) string {
		return `<segment><id>` + id + `</id><sequence_5prime>A</sequence_5prime><bonds>x</bonds><sequence_3prime>U</sequence_3prime><energy>` + energy + `</energy></segment>`
	}
	rna := func(seq, link string) string {
		return `<rnas><rna><title>r</title><sequence>` + seq + `</sequence><structures><structure><associated_segments><link>` + link + `</link></associated_segments></structure></structures></rna></rnas>`
	}
	cases := map[string]string{
		"malformed":      `<root><segments>`,
		"duplicate":      `<root><segments>` + segment("a", "1") + segment("a", "2") + `</segments></root>`,
		"bad energy":     `<root><segments>` + segment("a", "lots") + `</segments></root>`,
		"missing energy": `<root><segments>` + segment("a", "") + `</segments></root>`,
		"missing id":     `<root><segments>` + segment("", "1") + `</segments></root>`,
		"unknown link":   `<root><segments>` + segment("a", "1") + `</segments>` + rna("ACGU", "b") + `</root>`,
		"bad sequence":   `<root><segments>` + segment("a", "1") + `</segments>` + rna("ACXU", "a") + `</root>`,
		"bad direction":  `<root><segments><segment><id>a</id><sequence_5prime>A</sequence_5prime><bonds>x</bonds><sequence_3prime>U</sequence_3prime><energy>1</energy><directions><five_prime>maybe</five_prime></directions></segment></segments></root>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := segments.Parse(strings.NewReader(body))
			if !errors.Is(err, services.ErrConfigParse) {
				t.Fatalf("expected ErrConfigParse, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := segments.Load(filepath.Join(t.TempDir(), "absent.xml"))
	if !errors.Is(err, services.ErrConfigParse) {
		t.Fatalf("expected ErrConfigParse, got %v", err)
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.xml")
	if err := os.WriteFile(path, []byte(sampleDocument), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	doc, err := segments.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(doc.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(doc.Segments))
	}
}

func TestNormalizeSequence(t *testing.T) {
	cases := map[string]string{
		"  acgt ": "ACGU",
		`"GG'UU"`: "GGUU",
		"a c\tg":  "ACG",
		"":        "",
	}
	for in, want := range cases {
		if got := segments.NormalizeSequence(in); got != want {
			t.Fatalf("NormalizeSequence(%q) = %q, want %q", in, got, want)
		}
	}
	if segments.IsRNA("") || segments.IsRNA("ACGT") || !segments.IsRNA("ACGU") {
		t.Fatal("unexpected IsRNA result")
	}
}
