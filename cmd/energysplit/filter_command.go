package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"energysplit/internal/dbn"
)

func newFilterCommand() *cobra.Command {
	var (
		threshold float64
		belowPath string
	)

	cmd := &cobra.Command{
		Use:   "filter <results.dbn>",
		Short: "Keep transitions at or above an energy threshold",
		Long: "Reads an estimate result file and writes the entries whose transitions are at or\n" +
			"above --threshold to stdout. Transitions below it, and entries without any,\n" +
			"can be written to --below.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readResults(strings.TrimSpace(args[0]), cmd.InOrStdin())
			if err != nil {
				return err
			}
			atLeast, below := dbn.FilterByEnergy(entries, threshold)
			if err := writeResults(cmd.OutOrStdout(), atLeast); err != nil {
				return err
			}
			if strings.TrimSpace(belowPath) == "" {
				return nil
			}
			file, err := os.Create(belowPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", belowPath, err)
			}
			if err := writeResults(file, below); err != nil {
				_ = file.Close()
				return err
			}
			return file.Close()
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Energy threshold in kcal/mol")
	cmd.Flags().StringVar(&belowPath, "below", "", "Write entries below the threshold to this file")
	return cmd
}

func readResults(path string, stdin io.Reader) ([]dbn.Entry, error) {
	if path == "-" {
		return dbn.Parse(stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	defer file.Close()
	return dbn.Parse(file)
}

func writeResults(w io.Writer, entries []dbn.Entry) error {
	writer := dbn.NewWriter(w)
	for _, e := range entries {
		if err := writer.WriteEntry(e); err != nil {
			return err
		}
	}
	return writer.Flush()
}
