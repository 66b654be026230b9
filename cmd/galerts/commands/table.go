package commands

import (
	"fmt"
	"galerts/internal/alerts"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func renderMonitors(monitors []alerts.Monitor) {
	if len(monitors) == 0 {
		fmt.Println("No monitors have been created yet.")
		return
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "Term", "Delivery", "Match", "Frequency", "Locale", "Destination"})
	for _, m := range monitors {
		destination := m.EmailAddress
		if m.Delivery == alerts.DeliveryRSS {
			destination = m.RSSLink
		}
		t.AppendRow(table.Row{
			m.ID,
			m.Term,
			m.Delivery,
			m.MatchType,
			m.Frequency,
			fmt.Sprintf("%s-%s", m.Language, m.Region),
			destination,
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d monitors", len(monitors))})
	t.Render()
}
