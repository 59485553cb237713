package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"energysplit/internal/logging"
	"energysplit/internal/segments"
	"energysplit/internal/services"
)

const defaultFilePrefix = "segments_"

// Outcome is the parsed result of one oracle invocation.
type Outcome struct {
	FreeEnergy float64
	Sequence   string
	Structure  string
	// Segments is the oracle's reported number of folded segments, or -1 when
	// the header does not carry it.
	Segments int
}

// Prober folds a sequence with one segment at the segment's current energy.
type Prober interface {
	Probe(ctx context.Context, sequence string, seg segments.Segment) (Outcome, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (stdout, stderr []byte, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithTempDir sets the directory receiving probe documents.
func WithTempDir(dir string) Option {
	return func(c *Client) {
		if strings.TrimSpace(dir) != "" {
			c.tempDir = dir
		}
	}
}

// WithThreads sets the thread count passed to every invocation.
func WithThreads(threads int) Option {
	return func(c *Client) {
		if threads > 0 {
			c.threads = threads
		}
	}
}

// WithFilePrefix sets the probe document name prefix.
func WithFilePrefix(prefix string) Option {
	return func(c *Client) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithTimeout bounds every probe. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout >= 0 {
			c.timeout = timeout
		}
	}
}

// WithMinVersion sets the oldest release Version accepts.
func WithMinVersion(min Version) Option {
	return func(c *Client) {
		c.minVersion = min
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "oracle")
	}
}

// Client wraps segmentation-fold CLI interactions.
type Client struct {
	binary     string
	tempDir    string
	prefix     string
	threads    int
	timeout    time.Duration
	minVersion Version
	exec       Executor
	logger     *slog.Logger
}

// New constructs a segmentation-fold client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "oracle", "new", "segmentation-fold binary required", nil)
	}
	client := &Client{
		binary:     binary,
		tempDir:    os.TempDir(),
		prefix:     defaultFilePrefix,
		threads:    1,
		minVersion: MinimumVersion,
		exec:       commandExecutor{},
		logger:     logging.NewComponentLogger(nil, "oracle"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured binary path or name.
func (c *Client) Binary() string {
	return c.binary
}

// ForCombination returns a copy of the client that names its probe documents
// with prefix.
func (c *Client) ForCombination(prefix string) *Client {
	clone := *c
	if prefix != "" {
		clone.prefix = prefix
	}
	return &clone
}

// Probe folds sequence with seg at seg.Energy.
func (c *Client) Probe(ctx context.Context, sequence string, seg segments.Segment) (Outcome, error) {
	sequence = segments.NormalizeSequence(sequence)
	if sequence == "" {
		return Outcome{}, services.Wrap(services.ErrProbeFailed, "oracle", "probe", "empty sequence", nil)
	}

	xmlPath, err := c.writeProbeDocument(seg)
	if err != nil {
		return Outcome{}, err
	}
	defer os.Remove(xmlPath)

	probeCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{"-s", sequence, "-x", xmlPath, "-t", strconv.Itoa(c.threads)}
	started := time.Now()
	stdout, stderr, err := c.exec.Run(probeCtx, c.binary, args)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{}, ctxErr
	}
	logger := logging.WithContext(ctx, c.logger)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrProbeFailed, "oracle", "probe",
			fmt.Sprintf("segment %s at %s: %s", seg.ID, formatEnergy(seg.Energy), summarizeStderr(stderr)), err)
	}
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return Outcome{}, services.Wrap(services.ErrProbeFailed, "oracle", "probe",
			fmt.Sprintf("segment %s at %s: stderr: %s", seg.ID, formatEnergy(seg.Energy), summarizeStderr(stderr)), nil)
	}

	outcome, err := ParseOutput(stdout)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrProbeFailed, "oracle", "parse output",
			fmt.Sprintf("segment %s at %s", seg.ID, formatEnergy(seg.Energy)), err)
	}
	logger.Debug("probe complete",
		logging.String(logging.FieldSegment, seg.ID),
		logging.Float64("energy", segments.RoundEnergy(seg.Energy)),
		logging.Float64("free_energy", outcome.FreeEnergy),
		logging.Int("segments_folded", outcome.Segments),
		logging.Duration("elapsed", time.Since(started)),
	)
	return outcome, nil
}

func (c *Client) writeProbeDocument(seg segments.Segment) (string, error) {
	file, err := os.CreateTemp(c.tempDir, c.prefix+"*.xml")
	if err != nil {
		return "", services.Wrap(services.ErrProbeFailed, "oracle", "write probe document", c.tempDir, err)
	}
	writeErr := segments.WriteProbeDocument(file, seg)
	closeErr := file.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(file.Name())
		return "", services.Wrap(services.ErrProbeFailed, "oracle", "write probe document", file.Name(), err)
	}
	return file.Name(), nil
}

func formatEnergy(e float64) string {
	return strconv.FormatFloat(segments.RoundEnergy(e), 'f', -1, 64)
}

func summarizeStderr(stderr []byte) string {
	msg := strings.Join(strings.Fields(string(stderr)), " ")
	if msg == "" {
		return "no stderr output"
	}
	const limit = 200
	if len(msg) > limit {
		msg = msg[:limit] + "..."
	}
	return msg
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
