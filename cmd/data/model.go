package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/writer"
)

// Application states.
const (
	StateProviderSelect = iota
	StateSymbolInput
	StateIntervalSelect
	StateDataDisplay
)

// recordDirEnv names the directory polled quotes are captured to as Parquet.
// Capture is off when it is unset.
const recordDirEnv = "ARGO_RECORD_DIR"

// Model is the main Bubble Tea model for the live quote watchlist.
type Model struct {
	state        int
	providerList list.Model
	symbolInput  textinput.Model
	intervalList list.Model
	dataTable    table.Model
	marketData   map[string]types.Bar
	prevPrices   map[string]float64
	symbols      []string
	providerName string
	pollEvery    time.Duration
	err          error
	width        int
	height       int

	// Polling control. The sequence number identifies the active poll chain;
	// messages stamped with an older sequence are dropped.
	client     provider.Provider
	pollSeq    int
	pollCtx    context.Context
	pollCancel context.CancelFunc

	pollLabel string
	recorder  writer.BarWriter
}

// NewModel creates a new Model with initial state.
func NewModel() Model {
	return Model{
		state:        StateProviderSelect,
		providerList: NewProviderList(),
		symbolInput:  NewSymbolInput(),
		intervalList: NewIntervalList(),
		dataTable:    NewDataTable(),
		marketData:   make(map[string]types.Bar),
		prevPrices:   make(map[string]float64),
		symbols:      nil,
		providerName: "",
		pollEvery:    0,
		err:          nil,
		width:        0,
		height:       0,
		client:       nil,
		pollSeq:      0,
		pollCtx:      nil,
		pollCancel:   nil,
		pollLabel:    "",
		recorder:     nil,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.pollCancel != nil {
				m.pollCancel()
			}

			stopRecorder(m.recorder)

			return m, tea.Quit
		case "q":
			// Only quit on 'q' if not in text input mode
			if m.state != StateSymbolInput {
				if m.pollCancel != nil {
					m.pollCancel()
				}

				stopRecorder(m.recorder)

				return m, tea.Quit
			}
		case "esc":
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.providerList.SetSize(msg.Width, msg.Height-4)
		m.intervalList.SetSize(msg.Width, msg.Height-4)
		m.dataTable.SetWidth(msg.Width)
		m.dataTable.SetHeight(msg.Height - 6)

		return m, nil

	case PollStartedMsg:
		if msg.Seq != m.pollSeq {
			return m, nil
		}

		m.client = msg.Client
		m.recorder = msg.Recorder

		return m, m.fetchQuotes(msg.Seq)

	case QuotesMsg:
		if msg.Seq != m.pollSeq {
			return m, nil
		}

		// Remember the prior close per symbol for direction markers
		for symbol, quote := range msg.Quotes {
			if existing, ok := m.marketData[symbol]; ok {
				m.prevPrices[symbol] = existing.Close
			}

			m.marketData[symbol] = quote
		}

		m.err = nil
		m.dataTable = UpdateTableRows(m.dataTable, m.marketData, m.prevPrices)

		return m, m.scheduleNextPoll(msg.Seq)

	case PollErrorMsg:
		if msg.Seq != m.pollSeq {
			return m, nil
		}

		m.err = msg.Err
		if m.client == nil {
			// The provider never came up; there is nothing to poll.
			return m, nil
		}

		return m, m.scheduleNextPoll(msg.Seq)

	case pollTickMsg:
		if msg.Seq != m.pollSeq {
			return m, nil
		}

		return m, m.fetchQuotes(msg.Seq)
	}

	// Delegate to state-specific update
	switch m.state {
	case StateProviderSelect:
		return m.updateProviderSelect(msg)
	case StateSymbolInput:
		return m.updateSymbolInput(msg)
	case StateIntervalSelect:
		return m.updateIntervalSelect(msg)
	case StateDataDisplay:
		return m.updateDataDisplay(msg)
	}

	return m, nil
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateSymbolInput:
		m.state = StateProviderSelect
	case StateIntervalSelect:
		m.state = StateSymbolInput
		m.symbolInput.Focus()
	case StateDataDisplay:
		// Stop polling and clear watched symbols
		m.pollSeq++

		if m.pollCancel != nil {
			m.pollCancel()
			m.pollCancel = nil
		}

		stopRecorder(m.recorder)

		m.client = nil
		m.recorder = nil
		m.marketData = make(map[string]types.Bar)
		m.prevPrices = make(map[string]float64)
		m.symbols = nil
		m.pollEvery = 0
		m.pollLabel = ""
		m.err = nil
		m.symbolInput.Reset()
		m.symbolInput.Focus()
		m.state = StateSymbolInput

		return m, textinput.Blink
	}

	return m, nil
}

func (m Model) updateProviderSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.providerList.SelectedItem().(listItem); ok {
				m.providerName = item.name
				m.state = StateSymbolInput
				m.symbolInput.Focus()

				return m, textinput.Blink
			}
		}
	}

	var cmd tea.Cmd
	m.providerList, cmd = m.providerList.Update(msg)

	return m, cmd
}

func (m Model) updateSymbolInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			symbols := ParseSymbols(m.symbolInput.Value())
			if len(symbols) > 0 {
				m.symbols = symbols
				m.state = StateIntervalSelect
				m.symbolInput.Blur()

				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.symbolInput, cmd = m.symbolInput.Update(msg)

	return m, cmd
}

func (m Model) updateIntervalSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.intervalList.SelectedItem().(listItem); ok {
				m.pollEvery = item.every
				m.pollLabel = item.name
				m.state = StateDataDisplay
				m.pollSeq++

				ctx, cancel := context.WithCancel(context.Background())
				m.pollCtx = ctx
				m.pollCancel = cancel

				return m, m.startPolling(m.pollSeq)
			}
		}
	}

	var cmd tea.Cmd
	m.intervalList, cmd = m.intervalList.Update(msg)

	return m, cmd
}

func (m Model) updateDataDisplay(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.dataTable, cmd = m.dataTable.Update(msg)

	return m, cmd
}

// startPolling returns a command that builds the provider client and, when
// capture is enabled, the quote recorder. Quote fetching begins once
// PollStartedMsg lands.
func (m Model) startPolling(seq int) tea.Cmd {
	providerName := m.providerName
	pollLabel := m.pollLabel

	return func() tea.Msg {
		client, err := newWatchProvider(providerName)
		if err != nil {
			return PollErrorMsg{Seq: seq, Err: err}
		}

		recorder, err := newQuoteRecorder(providerName, pollLabel)
		if err != nil {
			return PollErrorMsg{Seq: seq, Err: err}
		}

		return PollStartedMsg{Seq: seq, Client: client, Recorder: recorder}
	}
}

// fetchQuotes returns a command that polls the provider once for the watched
// symbols and mirrors the round to the recorder when capture is on.
func (m Model) fetchQuotes(seq int) tea.Cmd {
	client := m.client
	ctx := m.pollCtx
	symbols := m.symbols
	recorder := m.recorder

	return func() tea.Msg {
		resp, err := client.FetchRealTimeData(ctx, symbols)
		if err != nil {
			return PollErrorMsg{Seq: seq, Err: err}
		}

		if err := recordQuotes(recorder, resp.Quotes); err != nil {
			return PollErrorMsg{Seq: seq, Err: err}
		}

		return QuotesMsg{Seq: seq, Quotes: resp.Quotes}
	}
}

// scheduleNextPoll arms the timer for the next quote fetch.
func (m Model) scheduleNextPoll(seq int) tea.Cmd {
	return tea.Tick(m.pollEvery, func(time.Time) tea.Msg {
		return pollTickMsg{Seq: seq}
	})
}

// newWatchProvider builds the realtime provider for the watch screen. Polygon
// reads its API key from POLYGON_API_KEY.
func newWatchProvider(name string) (provider.Provider, error) {
	switch provider.ProviderType(name) {
	case provider.ProviderPolygon:
		apiKey := os.Getenv("POLYGON_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("polygon provider requires the POLYGON_API_KEY environment variable")
		}

		return provider.NewMarketDataProvider(provider.ProviderPolygon, apiKey)
	case provider.ProviderBinance:
		return provider.NewMarketDataProvider(provider.ProviderBinance, nil)
	default:
		return nil, fmt.Errorf("provider %q has no realtime feed", name)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateProviderSelect:
		s.WriteString(TitleStyle.Render("Argo Equity - Live Quotes"))
		s.WriteString("\n\n")
		s.WriteString(m.providerList.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Press Enter to select, q to quit"))

	case StateSymbolInput:
		s.WriteString(TitleStyle.Render("Enter Symbols"))
		s.WriteString("\n\n")
		s.WriteString("Enter comma-separated tickers (e.g., AAPL,MSFT):\n\n")
		s.WriteString(m.symbolInput.View())
		s.WriteString("\n\n")
		s.WriteString(HelpStyle.Render("Press Enter to confirm, Esc to go back"))

	case StateIntervalSelect:
		s.WriteString(TitleStyle.Render("Select Refresh Interval"))
		s.WriteString("\n\n")
		s.WriteString(m.intervalList.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Press Enter to select, Esc to go back"))

	case StateDataDisplay:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Live Quotes - %s (every %s)", m.providerName, m.pollEvery)))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		if len(m.marketData) == 0 {
			s.WriteString("Waiting for quotes...\n")
		} else {
			s.WriteString(m.dataTable.View())
		}

		s.WriteString("\n")

		help := fmt.Sprintf("q: quit | Esc: back | Watching: %s", strings.Join(m.symbols, ", "))
		if m.recorder != nil {
			help += fmt.Sprintf(" | Recording: %s", m.recorder.GetOutputPath())
		}

		s.WriteString(HelpStyle.Render(help))
	}

	return s.String()
}

// newQuoteRecorder builds the Parquet quote recorder when capture is enabled
// through the environment. A nil recorder means capture is off.
func newQuoteRecorder(providerName, intervalLabel string) (writer.BarWriter, error) {
	dir := os.Getenv(recordDirEnv)
	if dir == "" {
		return nil, nil
	}

	rec := writer.NewStreamingDuckDBWriter(dir, providerName, intervalLabel)
	if err := rec.Initialize(); err != nil {
		return nil, err
	}

	return rec, nil
}

// recordQuotes appends one polling round to the recorder in symbol order.
func recordQuotes(rec writer.BarWriter, quotes map[string]types.Bar) error {
	if rec == nil {
		return nil
	}

	symbols := make([]string, 0, len(quotes))
	for symbol := range quotes {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	for _, symbol := range symbols {
		if err := rec.Write(quotes[symbol]); err != nil {
			return err
		}
	}

	return nil
}

// stopRecorder flushes and closes the recorder. Safe to call with nil.
func stopRecorder(rec writer.BarWriter) {
	if rec == nil {
		return
	}

	_, _ = rec.Finalize()
	_ = rec.Close()
}
