package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"energysplit/internal/config"
	"energysplit/internal/logging"
	"energysplit/internal/oracle"
	"energysplit/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify segmentation-fold and the temp directory are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := newOracleClient(cfg)
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, client)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("environment", colorize) {
				fmt.Fprintln(out, line)
			}
			if ctx.configPath != "" {
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
			}
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			ledgerDetail := "disabled"
			if cfg.LedgerEnabled() {
				ledgerDetail = cfg.Paths.LedgerPath
			}
			fmt.Fprintln(out, renderStatusLine("Ledger", statusInfo, ledgerDetail, colorize))
			return preflight.Err(results)
		},
	}
}

// newOracleClient builds a client for one-off commands. Probe documents are
// never written, so the configured temp dir is used directly.
func newOracleClient(cfg *config.Config) (*oracle.Client, error) {
	floor, err := oracle.ParseVersionFloor(cfg.Oracle.MinVersion)
	if err != nil {
		return nil, err
	}
	return oracle.New(cfg.Oracle.Binary,
		oracle.WithTempDir(cfg.Paths.TempDir),
		oracle.WithTimeout(10*time.Second),
		oracle.WithMinVersion(floor),
		oracle.WithLogger(logging.NewNop()),
	)
}
