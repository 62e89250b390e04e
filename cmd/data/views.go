package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata"
)

// listItem implements list.Item for the provider and refresh interval lists.
type listItem struct {
	name        string
	title       string
	description string
	every       time.Duration
}

func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.description }
func (i listItem) FilterValue() string { return i.name }

// NewProviderList creates the provider selection list from the registry
// entries that serve a realtime feed.
func NewProviderList() list.Model {
	names := marketdata.GetSupportedProviders()
	items := make([]list.Item, 0, len(names))

	for _, name := range names {
		info, err := marketdata.GetProviderInfo(name)
		if err != nil || !info.SupportsRealTime {
			continue
		}

		description := info.Description
		if info.RequiresAuth {
			description += " (requires API key)"
		}

		items = append(items, listItem{name: info.Name, title: info.DisplayName, description: description, every: 0})
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select Data Provider"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// NewIntervalList creates the refresh interval selection list.
func NewIntervalList() list.Model {
	items := []list.Item{
		listItem{name: "1s", title: "1s", description: "refresh every second", every: time.Second},
		listItem{name: "2s", title: "2s", description: "refresh every 2 seconds", every: 2 * time.Second},
		listItem{name: "5s", title: "5s", description: "refresh every 5 seconds", every: 5 * time.Second},
		listItem{name: "10s", title: "10s", description: "refresh every 10 seconds", every: 10 * time.Second},
		listItem{name: "30s", title: "30s", description: "refresh every 30 seconds", every: 30 * time.Second},
		listItem{name: "1m", title: "1m", description: "refresh every minute", every: time.Minute},
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select Refresh Interval"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// NewSymbolInput creates a new text input for ticker entry.
func NewSymbolInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "AAPL,MSFT,NVDA"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 50
	ti.Prompt = "> "

	return ti
}

// ParseSymbols parses comma-separated tickers into an uppercased slice.
func ParseSymbols(input string) []string {
	parts := strings.Split(input, ",")
	symbols := make([]string, 0, len(parts))

	for _, p := range parts {
		s := strings.TrimSpace(strings.ToUpper(p))
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	return symbols
}

// NewDataTable creates the quote display table.
func NewDataTable() table.Model {
	columns := []table.Column{
		{Title: "Symbol", Width: 10},
		{Title: "Price", Width: 16},
		{Title: "Open", Width: 12},
		{Title: "High", Width: 12},
		{Title: "Low", Width: 12},
		{Title: "Volume", Width: 14},
		{Title: "Time", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// UpdateTableRows rebuilds the table rows from the latest quotes.
func UpdateTableRows(t table.Model, quotes map[string]types.Bar, prevPrices map[string]float64) table.Model {
	// Sort symbols for consistent ordering
	symbols := make([]string, 0, len(quotes))
	for symbol := range quotes {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	rows := make([]table.Row, 0, len(quotes))

	for _, symbol := range symbols {
		quote := quotes[symbol]
		prevPrice := prevPrices[symbol]

		rows = append(rows, table.Row{
			symbol,
			FormatPrice(quote.Close, prevPrice),
			fmt.Sprintf("%.2f", quote.Open),
			fmt.Sprintf("%.2f", quote.High),
			fmt.Sprintf("%.2f", quote.Low),
			fmt.Sprintf("%.0f", quote.Volume),
			quote.Time.Format("15:04:05"),
		})
	}

	t.SetRows(rows)

	return t
}
