package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/youruser/distintivos/internal/batch"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderReport formats one row per record followed by the totals line.
func renderReport(report batch.Report) string {
	rows := make([][]string, 0, len(report.Results))
	for _, r := range report.Results {
		detail := r.Destination
		if r.Err != nil {
			detail = r.Kind + ": " + r.Err.Error()
		}
		size := ""
		if r.Bytes > 0 {
			size = humanize.Bytes(uint64(r.Bytes))
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Row),
			r.Name,
			string(r.Outcome),
			size,
			yesNo(r.QRCreated),
			detail,
		})
	}

	var b strings.Builder
	b.WriteString(renderTable(
		[]string{"Row", "Name", "Outcome", "Size", "New QR", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d succeeded, %d skipped, %d rejected, %d failed in %s\n",
		report.Succeeded, report.Skipped, report.Rejected, report.Failed,
		report.Duration().Round(time.Millisecond))
	return b.String()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return ""
}
