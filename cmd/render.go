package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/fxgate/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

func renderLatest(rate domain.ExchangeRate) string {
	rates := rate.Rates()
	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	t := newTable("CURRENCY", "RATE")
	for _, code := range codes {
		t.Row(code, rates[code].String())
	}

	title := titleStyle.Render(fmt.Sprintf("1 %s on %s", rate.Base(), domain.FormatDate(rate.Date())))
	return title + "\n" + t.String()
}

func renderConversion(from, to string, amount, converted decimal.Decimal) string {
	t := newTable("FROM", "TO", "AMOUNT", "RESULT").
		Row(from, to, amount.String(), converted.StringFixed(2))

	return t.String()
}

func renderHistory(base string, page int, history []domain.ExchangeRate) string {
	title := titleStyle.Render(fmt.Sprintf("%s history, page %d", base, page))
	if len(history) == 0 {
		return title + "\n" + mutedStyle.Render("no rates on this page")
	}

	codeSet := make(map[string]struct{})
	for _, day := range history {
		for code := range day.Rates() {
			codeSet[code] = struct{}{}
		}
	}
	codes := make([]string, 0, len(codeSet))
	for code := range codeSet {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	t := newTable(append([]string{"DATE"}, codes...)...)
	for _, day := range history {
		row := []string{domain.FormatDate(day.Date())}
		for _, code := range codes {
			value, ok := day.Rate(code)
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, value.String())
		}
		t.Row(row...)
	}

	return title + "\n" + strings.TrimRight(t.String(), "\n")
}
