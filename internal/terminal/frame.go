package terminal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/victornm/equiz-client/internal/answer"
	"github.com/victornm/equiz-client/internal/view"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	tableStyles = table.Styles{
		Header:   lipgloss.NewStyle().Bold(true).PaddingRight(2),
		Cell:     lipgloss.NewStyle().PaddingRight(2),
		Selected: lipgloss.NewStyle(),
	}
)

// Frame formats one screen. Option numbers start at 1.
func Frame(s view.Screen) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("%s", titleStyle.Render(fmt.Sprintf("==== %s ====", s.Title)))
	if s.User != "" {
		line("%s", s.User)
	}

	switch {
	case s.Subtitle != "" && s.Progress != "":
		line("%s  [%s]", s.Subtitle, s.Progress)
	case s.Subtitle != "":
		line("%s", s.Subtitle)
	}

	if s.Image != "" {
		line("Image: %s", s.Image)
	}

	if s.Table != nil {
		line("%s", renderTable(s.Table))
	}

	switch f := s.Form.(type) {
	case *answer.ChoiceForm:
		selected, _ := f.Selected()
		for i, o := range f.Options() {
			mark := " "
			if i == selected {
				mark = "x"
			}
			line("  (%s) %d. %s", mark, i+1, o)
		}
	case *answer.OptionForm:
		for i, o := range f.Options() {
			mark := " "
			if f.Toggled(i) {
				mark = "x"
			}
			line("  [%s] %d. %s", mark, i+1, o)
		}
	case *answer.OpenForm:
		line("  %s: %s", f.Key(), f.Text())
	}

	if s.Error != "" {
		line("%s", errorStyle.Render("! "+s.Error))
	}
	if s.Info != "" {
		line("%s", infoStyle.Render("> "+s.Info))
	}
	if s.LoginVisible {
		line(`Type "login <username>" to join.`)
	}

	return b.String()
}

func renderTable(t *view.Table) string {
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = max(1, lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	cols := make([]table.Column, len(t.Header))
	for i, h := range t.Header {
		cols[i] = table.Column{Title: h, Width: widths[i]}
	}

	rows := make([]table.Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = table.Row(r)
	}

	tb := table.New(
		table.WithStyles(tableStyles),
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
	)
	return tb.View()
}
