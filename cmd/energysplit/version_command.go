package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func buildVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print energysplit and segmentation-fold versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "energysplit %s\n", buildVersion())

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := newOracleClient(cfg)
			if err != nil {
				return err
			}
			v, err := client.Version(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "segmentation-fold unavailable: %v\n", err)
				return nil
			}
			fmt.Fprintf(out, "segmentation-fold %s (%s)\n", v, client.Binary())
			return nil
		},
	}
}
