package observability

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

// RenderTable writes a two-column summary of the relay counters.
func RenderTable(w io.Writer, stats RelayStats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Counter", "Value"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := [][]string{
		{"peers admitted", strconv.FormatUint(stats.PeersAdmitted, 10)},
		{"peers forced", strconv.FormatUint(stats.PeersForced, 10)},
		{"peers retired", strconv.FormatUint(stats.PeersRetired, 10)},
		{"write errors", strconv.FormatUint(stats.WriteErrors, 10)},
		{"broadcasts", strconv.FormatUint(stats.Broadcasts, 10)},
		{"bytes sent", strconv.FormatUint(stats.BytesSent, 10)},
		{"drain cycles", strconv.FormatUint(stats.DrainCycles, 10)},
		{"accept retries", strconv.FormatUint(stats.AcceptRetries, 10)},
		{"messages published", strconv.FormatUint(stats.PublishedTotal, 10)},
		{"messages truncated", strconv.FormatUint(stats.Truncated, 10)},
		{"uptime", stats.Uptime.Truncate(time.Second).String()},
	}
	table.AppendBulk(rows)
	table.Render()
}
