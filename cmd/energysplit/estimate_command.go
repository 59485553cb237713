package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"energysplit/internal/config"
	"energysplit/internal/estimaterun"
	"energysplit/internal/services"
)

type estimateFlags struct {
	threads        int
	precision      float64
	randomize      int
	seed           uint64
	metric         string
	tempDir        string
	binary         string
	xmlFile        string
	fastaFile      string
	ledgerPath     string
	parallelProbes bool
}

func newEstimateCommand(ctx *commandContext) *cobra.Command {
	var flags estimateFlags

	cmd := &cobra.Command{
		Use:   "estimate [output.dbn]",
		Short: "Find the segment energies at which folds change",
		Long: "Bisects the segment free energy for every (sequence, segment) combination and\n" +
			"writes each transition as a dot-bracket pair. Output defaults to stdout.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyEstimateFlags(cmd, *base, flags)
			if err != nil {
				return err
			}

			output := "-"
			if len(args) == 1 {
				output = strings.TrimSpace(args[0])
			}
			summary, runErr := estimaterun.Run(cmd.Context(), cfg, estimaterun.Options{
				OutputPath: output,
				FastaPath:  flags.fastaFile,
				Stdout:     cmd.OutOrStdout(),
			})
			if summary != nil {
				renderRunSummary(cmd.ErrOrStderr(), summary)
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.IntVarP(&flags.threads, "threads", "T", 0, "Combinations searched concurrently")
	f.Float64VarP(&flags.precision, "precision", "p", 0, "Stop splitting intervals narrower than this (kcal/mol)")
	f.IntVarP(&flags.randomize, "randomize", "r", 0, "Shuffled replicates per combination (0 searches the original only)")
	f.Uint64Var(&flags.seed, "seed", 0, "Shuffle seed (0 derives one from the clock)")
	f.StringVar(&flags.metric, "metric", "", "Divergence metric: pairs, helices, segments or structure")
	f.StringVar(&flags.tempDir, "temp-dir", "", "Directory for probe documents")
	f.StringVar(&flags.binary, "segmentation-fold", "", "segmentation-fold binary")
	f.StringVarP(&flags.xmlFile, "xml-file", "x", "", "Segment definition XML document")
	f.StringVarP(&flags.fastaFile, "sequences-from-fasta-file", "f", "", "Search these FASTA sequences instead of the document's RNAs")
	f.StringVar(&flags.ledgerPath, "ledger", "", "Run ledger path (\"none\" disables it)")
	f.BoolVar(&flags.parallelProbes, "parallel-probes", false, "Probe interval bounds and halves concurrently")
	return cmd
}

// applyEstimateFlags overlays explicitly set flags on a copy of the loaded
// config and revalidates it.
func applyEstimateFlags(cmd *cobra.Command, cfg config.Config, flags estimateFlags) (*config.Config, error) {
	changed := cmd.Flags().Changed
	if changed("threads") {
		cfg.Engine.Threads = flags.threads
	}
	if changed("precision") {
		cfg.Engine.Precision = flags.precision
	}
	if changed("randomize") {
		cfg.Engine.Randomize = flags.randomize
	}
	if changed("seed") {
		cfg.Engine.Seed = flags.seed
	}
	if changed("metric") {
		cfg.Engine.Metric = strings.ToLower(strings.TrimSpace(flags.metric))
	}
	if changed("parallel-probes") {
		cfg.Engine.ParallelProbes = flags.parallelProbes
	}
	if changed("segmentation-fold") {
		cfg.Oracle.Binary = strings.TrimSpace(flags.binary)
	}

	paths := []struct {
		flag   string
		value  string
		target *string
	}{
		{"temp-dir", flags.tempDir, &cfg.Paths.TempDir},
		{"xml-file", flags.xmlFile, &cfg.Paths.SegmentsXML},
		{"ledger", flags.ledgerPath, &cfg.Paths.LedgerPath},
	}
	for _, p := range paths {
		if !changed(p.flag) {
			continue
		}
		value := strings.TrimSpace(p.value)
		if p.flag == "ledger" && (value == "" || strings.EqualFold(value, "none")) {
			*p.target = ""
			continue
		}
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "cli", "--"+p.flag, value, err)
		}
		*p.target = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cli", "validate flags", "", err)
	}
	return &cfg, nil
}

func formatSeed(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
