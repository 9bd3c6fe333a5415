package tui

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteSummary renders a final per-file table: name, outcome, duration and
// the last observed throughput. Called once the bubbletea program has
// exited, so it prints as plain text after the live view is torn down.
func WriteSummary(w io.Writer, rows []*fileRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"File", "Status", "Duration", "Throughput"})

	for _, r := range rows {
		status := "incomplete"
		if r.done {
			status = "done"
		}

		duration := "-"
		if !r.startedAt.IsZero() && !r.finishAt.IsZero() {
			duration = r.finishAt.Sub(r.startedAt).Round(time.Millisecond).String()
		}

		throughput := "-"
		if r.lastMbps > 0 {
			throughput = formatSpeed(r.lastMbps)
		}

		t.AppendRow(table.Row{r.name, status, duration, throughput})
	}

	t.Render()
}
