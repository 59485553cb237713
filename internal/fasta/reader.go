// Package fasta reads the sequence collections that replace the targets of a
// segment document.
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"energysplit/internal/logging"
	"energysplit/internal/services"
)

// Record is one named sequence, uppercased with T mapped to U.
type Record struct {
	Name     string
	Sequence string
}

var gzipMagic = []byte{0x1f, 0x8b}

// Read loads every usable record from path. "-" reads stdin. Gzip input is
// detected by suffix or magic bytes.
func Read(path string, logger *slog.Logger) ([]Record, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfigParse, "fasta", "open", path, err)
	}
	defer rc.Close()
	return Parse(rc, logger)
}

// Parse reads FASTA records from r. Records containing characters outside
// ACGTU are skipped with a warning.
func Parse(r io.Reader, logger *slog.Logger) ([]Record, error) {
	logger = logging.NewComponentLogger(logger, "fasta")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var (
		records []Record
		name    string
		body    strings.Builder
		open    bool
		lineNo  int
	)
	flush := func() {
		if !open {
			return
		}
		seq := strings.ToUpper(body.String())
		if !isNucleotide(seq) {
			logging.WarnWithContext(logger, "skipping fasta record with non-ACGTU characters", "fasta_record_skipped",
				logging.String("record", name),
				logging.String(logging.FieldErrorHint, "remove ambiguity codes or gaps from the sequence"),
			)
		} else {
			records = append(records, Record{Name: name, Sequence: strings.ReplaceAll(seq, "T", "U")})
		}
		body.Reset()
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '>' {
			flush()
			name = strings.TrimSpace(line[1:])
			open = true
			continue
		}
		if !open {
			return nil, services.Wrap(services.ErrConfigParse, "fasta", "parse", fmt.Sprintf("line %d: sequence before first header", lineNo), nil)
		}
		body.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrConfigParse, "fasta", "read", "", err)
	}
	flush()
	return records, nil
}

func isNucleotide(seq string) bool {
	if seq == "" {
		return false
	}
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'A', 'C', 'G', 'T', 'U':
		default:
			return false
		}
	}
	return true
}

func openReader(path string) (io.ReadCloser, error) {
	var src io.ReadCloser
	if path == "-" {
		src = io.NopCloser(os.Stdin)
	} else {
		fh, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		src = fh
	}

	buffered := bufio.NewReader(src)
	magic, _ := buffered.Peek(len(gzipMagic))
	if !strings.HasSuffix(path, ".gz") && !bytes.Equal(magic, gzipMagic) {
		return struct {
			io.Reader
			io.Closer
		}{Reader: buffered, Closer: src}, nil
	}
	gr, err := gzip.NewReader(buffered)
	if err != nil {
		src.Close()
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{Reader: gr, Closer: src}, nil
}
