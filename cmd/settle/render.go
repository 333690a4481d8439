package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ttiimmothy/expense-splitter/models"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorMuted  = lipgloss.Color("#6F6E69")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	borderStyle = lipgloss.NewStyle().Foreground(colorBorder)
	valueStyle  = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	owedStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	owesStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

type table struct {
	title   string
	headers []string
	rows    [][]cell
}

type cell struct {
	text  string
	style lipgloss.Style
}

func plain(s string) cell { return cell{text: s, style: valueStyle} }

func renderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)
	return box.Render(titleStyle.Render(title))
}

// render draws a bordered table. The first column is left-aligned and the
// rest are right-aligned.
func (t table) render() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if w := runewidth.StringWidth(c.text); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	rule := func(left, mid, right string) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return borderStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
	}
	pad := func(s string, i int) string {
		gap := strings.Repeat(" ", widths[i]-runewidth.StringWidth(s))
		if i == 0 {
			return " " + s + gap + " "
		}
		return " " + gap + s + " "
	}

	var b strings.Builder
	if t.title != "" {
		b.WriteString("  " + headerStyle.Render(t.title) + "\n")
	}
	b.WriteString(rule("╭", "┬", "╮"))

	sep := borderStyle.Render("│")
	b.WriteString(sep)
	for i, h := range t.headers {
		b.WriteString(headerStyle.Render(pad(h, i)) + sep)
	}
	b.WriteString("\n")
	b.WriteString(rule("├", "┼", "┤"))

	for _, row := range t.rows {
		b.WriteString(sep)
		for i := range widths {
			c := plain("")
			if i < len(row) {
				c = row[i]
			}
			b.WriteString(c.style.Render(pad(c.text, i)) + sep)
		}
		b.WriteString("\n")
	}
	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

func renderBalances(group string, resp *models.GroupBalancesResponse) string {
	var b strings.Builder
	b.WriteString(renderTitle(fmt.Sprintf("%s  %s", strings.ToUpper(group), resp.Currency)))
	b.WriteString("\n\n")

	t := table{title: "Balances", headers: []string{"Person", "Net", "Status"}}
	for _, bal := range resp.Balances {
		name := plain(displayName(bal))
		if !bal.IsCurrentMember {
			name = cell{text: displayName(bal) + " (left)", style: mutedStyle}
		}
		net := bal.NetBalance.StringFixed(fixedPlaces(resp.Balances))
		var status cell
		switch {
		case bal.NetBalance.IsPositive():
			status = cell{text: "is owed", style: owedStyle}
		case bal.NetBalance.IsNegative():
			status = cell{text: "owes", style: owesStyle}
		default:
			status = cell{text: "settled", style: mutedStyle}
		}
		t.rows = append(t.rows, []cell{name, {text: net, style: status.style}, status})
	}
	b.WriteString(t.render())
	b.WriteString("\n")
	b.WriteString(renderSuggestionTable(resp.Currency, resp.Suggestions))
	return b.String()
}

func renderSuggestions(group, currency string, suggestions []models.SettlementSuggestion) string {
	var b strings.Builder
	b.WriteString(renderTitle(fmt.Sprintf("%s  SETTLE UP", strings.ToUpper(group))))
	b.WriteString("\n\n")
	b.WriteString(renderSuggestionTable(currency, suggestions))
	return b.String()
}

func renderSuggestionTable(currency string, suggestions []models.SettlementSuggestion) string {
	if len(suggestions) == 0 {
		return "  " + mutedStyle.Render("Everyone is settled up.") + "\n"
	}
	t := table{title: "Suggested payments", headers: []string{"From", "To", "Amount " + currency}}
	for _, s := range suggestions {
		t.rows = append(t.rows, []cell{plain(s.FromUserName), plain(s.ToUserName), plain(s.Amount.String())})
	}
	return t.render()
}

// fixedPlaces is the widest exponent among the balances, so a column of
// amounts lines up on the decimal point.
func fixedPlaces(balances []models.Balance) int32 {
	var places int32
	for _, b := range balances {
		if e := -b.NetBalance.Exponent(); e > places {
			places = e
		}
	}
	return places
}
