package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"energysplit/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect recorded estimate runs",
	}
	ledgerCmd.AddCommand(newLedgerShowCommand(ctx))
	return ledgerCmd
}

func newLedgerShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show the latest run, or the given one, with its units",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.LedgerEnabled() {
				return errors.New("run ledger is disabled (paths.ledger_path is empty)")
			}
			store, err := ledger.Open(cfg.Paths.LedgerPath)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			var run *ledger.Run
			if len(args) == 1 {
				run, err = store.GetRun(cmd.Context(), strings.TrimSpace(args[0]))
			} else {
				run, err = store.LatestRun(cmd.Context())
			}
			if errors.Is(err, ledger.ErrNotFound) && len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			if err != nil {
				return err
			}
			units, err := store.ListUnits(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			renderLedgerRun(cmd.OutOrStdout(), run, units)
			return nil
		},
	}
}

func renderLedgerRun(w io.Writer, run *ledger.Run, units []ledger.Unit) {
	colorize := shouldColorize(w)
	for _, line := range renderSectionHeader("recorded run", colorize) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, renderStatusLine("Run ID", statusInfo, run.ID, colorize))

	state := "running or interrupted"
	kind := statusInfo
	if run.Finished() {
		state = fmt.Sprintf("finished %s, %d of %d failed",
			run.FinishedAt.Local().Format(time.DateTime), run.FailedUnits, run.TotalUnits)
		kind = statusOK
		if run.FailedUnits > 0 {
			kind = statusError
		}
	}
	s := run.Settings
	output := run.OutputPath
	if output == "" || output == "-" {
		output = "stdout"
	}
	fmt.Fprintln(w, renderStatusLine("Started", statusInfo, run.StartedAt.Local().Format(time.DateTime), colorize))
	fmt.Fprintln(w, renderStatusLine("State", kind, state, colorize))
	fmt.Fprintln(w, renderStatusLine("Output", statusInfo, output, colorize))
	fmt.Fprintln(w, renderStatusLine("Segments", statusInfo, s.SegmentsXML, colorize))
	if s.FastaPath != "" {
		fmt.Fprintln(w, renderStatusLine("Sequences", statusInfo, s.FastaPath, colorize))
	}
	fmt.Fprintln(w, renderStatusLine("Search", statusInfo,
		fmt.Sprintf("precision %s, bound %s/base, metric %s, %s",
			strconv.FormatFloat(s.Precision, 'f', -1, 64),
			strconv.FormatFloat(s.PerBase, 'f', -1, 64),
			s.Metric, plural(s.Threads, "thread")),
		colorize))
	if s.Randomize > 0 {
		fmt.Fprintln(w, renderStatusLine("Shuffle", statusInfo,
			fmt.Sprintf("%s, seed %s", plural(s.Randomize, "replicate"), formatSeed(s.Seed)), colorize))
	}

	rows := make([][]string, 0, len(units))
	for _, u := range units {
		rows = append(rows, []string{
			strconv.Itoa(u.Combination),
			replicateLabel(u.Replicate),
			u.Name,
			u.Segment,
			titleCase(string(u.Status)),
			strconv.Itoa(u.Transitions),
			strconv.Itoa(u.Probes),
			u.Error,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Replicate", "Sequence", "Segment", "Status", "Transitions", "Probes", "Error"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}
