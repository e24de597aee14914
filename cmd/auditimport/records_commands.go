package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"auditimport/internal/catalog"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and seed records",
	}
	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsAddCommand(ctx))
	return recordsCmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records that carry an identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			b, err := ctx.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			out := cmd.OutOrStdout()
			if b.catalog != nil {
				summaries, err := b.catalog.Summaries(cmd.Context(), ctx.recordQuery(), cfg.Import.FieldName)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, summaries)
				}
				if len(summaries) == 0 {
					fprintln(out, "No records")
					return nil
				}
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, []string{s.Handle, s.Identifier, s.Category, s.Status, strconv.Itoa(s.Letters)})
				}
				fprintln(out, renderTable([]string{"Handle", "Identifier", "Category", "Status", "Letters"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight}))
				return nil
			}

			records, err := b.records.ListRecords(cmd.Context(), ctx.recordQuery())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				fprintln(out, "No records")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{r.Handle, r.Identifier})
			}
			fprintln(out, renderTable([]string{"Handle", "Identifier"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print records as JSON")
	return cmd
}

func newRecordsAddCommand(ctx *commandContext) *cobra.Command {
	var category, status string

	cmd := &cobra.Command{
		Use:   "add <identifier>...",
		Short: "Add records to the local catalog (sqlite backend only)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			b, err := ctx.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			if b.catalog == nil {
				return errSQLiteOnly
			}

			if strings.TrimSpace(category) == "" {
				category = cfg.Import.PostType
			}
			if strings.TrimSpace(status) == "" {
				status = cfg.Import.PostStatus
			}
			out := cmd.OutOrStdout()
			for _, identifier := range args {
				handle, err := b.catalog.AddRecord(cmd.Context(), catalog.NewRecord{
					Category:      category,
					Status:        status,
					IdentifierKey: cfg.Import.IdentifierMetaKey,
					Identifier:    identifier,
				})
				if err != nil {
					return fmt.Errorf("add record %q: %w", identifier, err)
				}
				fmt.Fprintf(out, "Added record %s with identifier %s\n", handle, identifier)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Record category (default import.post_type)")
	cmd.Flags().StringVar(&status, "status", "", "Record status (default import.post_status)")
	return cmd
}
