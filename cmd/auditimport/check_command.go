package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"auditimport/internal/config"
	"auditimport/internal/deps"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check external tools and directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			statuses = append(statuses, deps.CheckDirectories(cfg, time.Now())...)

			if cfg.Store.Backend == config.BackendWPCLI && statuses[0].Available {
				statuses = append(statuses, ctx.checkWordPress(cmd))
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				rows = append(rows, []string{s.Name, s.Command, yesNo(s.Available), yesNo(!s.Optional), s.Detail})
			}
			fprintln(out, renderTable([]string{"Check", "Target", "OK", "Required", "Detail"}, rows, nil))

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required dependencies: %v", missing)
			}
			fprintln(out, "All required dependencies available")
			return nil
		},
	}
}

func (c *commandContext) checkWordPress(cmd *cobra.Command) deps.Status {
	status := deps.Status{Name: "WordPress", Description: "Site reachable through WP-CLI"}
	b, err := c.openBackend()
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	defer b.Close()
	version, err := b.wp.Version(cmd.Context())
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Command = "core " + version
	status.Available = true
	return status
}
