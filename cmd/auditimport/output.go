package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"auditimport/internal/letters"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func outcomeLine(outcome letters.Outcome, colorize bool) string {
	line := outcome.Message()
	if !colorize {
		return line
	}
	if outcome.OK() {
		return text.FgGreen.Sprint(line)
	}
	return text.FgRed.Sprint(line)
}

func outcomeResult(outcome letters.Outcome) string {
	if outcome.Err != nil {
		return outcome.Err.Error()
	}
	return string(outcome.Status)
}

func summarize(report *letters.Report) (ok, failed int) {
	for _, outcome := range report.Outcomes {
		if outcome.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

type outcomeJSON struct {
	File       string `json:"file"`
	Identifier string `json:"identifier,omitempty"`
	Record     string `json:"record,omitempty"`
	Asset      string `json:"asset,omitempty"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
}

type reportJSON struct {
	RunID      string              `json:"run_id"`
	Dir        string              `json:"dir"`
	Year       string              `json:"year"`
	DryRun     bool                `json:"dry_run"`
	Records    int                 `json:"records"`
	Duplicates []letters.Duplicate `json:"duplicates,omitempty"`
	Outcomes   []outcomeJSON       `json:"outcomes"`
}

func toReportJSON(report *letters.Report) reportJSON {
	out := reportJSON{
		RunID:      report.RunID,
		Dir:        report.Dir,
		Year:       report.Year,
		DryRun:     report.DryRun,
		Records:    report.Records,
		Duplicates: report.Duplicates,
		Outcomes:   make([]outcomeJSON, 0, len(report.Outcomes)),
	}
	for _, o := range report.Outcomes {
		item := outcomeJSON{
			File:       o.File,
			Identifier: o.Identifier,
			Record:     o.Record,
			Asset:      o.Asset,
			Status:     string(o.Status),
			Message:    o.Message(),
		}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		out.Outcomes = append(out.Outcomes, item)
	}
	return out
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
