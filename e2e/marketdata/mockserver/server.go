// Package mockserver provides a mock spot exchange for integration tests.
// It speaks the klines REST dialect the binance provider consumes and
// streams kline events over a websocket endpoint.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-equity/mocks"
)

// klinePageSize is the row cap per klines request, matching the upstream
// exchange limit the provider pages against.
const klinePageSize = 500

// MockExchangeServer serves deterministic minute klines over REST and
// websocket. Tests inspect per-symbol traffic counters and can inject
// transient failures.
type MockExchangeServer struct {
	mu sync.RWMutex

	// HTTP server
	httpServer *http.Server
	listener   net.Listener
	stopOnce   sync.Once

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// Market state
	currentPrices map[string]float64
	seed          int64

	// Traffic accounting and fault injection, keyed by symbol
	klineRequests map[string]int
	failKlines    map[string]int

	// WebSocket connections
	wsConnections map[*websocket.Conn]bool
	wsMu          sync.RWMutex

	// Streaming configuration
	streamInterval time.Duration
	stopStreaming  chan struct{}
}

// ServerConfig holds configuration for the mock exchange.
type ServerConfig struct {
	// InitialPrices maps symbol to its starting price
	InitialPrices map[string]float64
	// StreamInterval is the interval between websocket kline pushes
	StreamInterval time.Duration
	// Seed drives the deterministic kline generator
	Seed int64
}

// NewMockExchangeServer creates a new mock exchange server.
func NewMockExchangeServer(config ServerConfig) *MockExchangeServer {
	server := &MockExchangeServer{
		mu:         sync.RWMutex{},
		httpServer: nil,
		listener:   nil,
		stopOnce:   sync.Once{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		currentPrices:  make(map[string]float64),
		seed:           config.Seed,
		klineRequests:  make(map[string]int),
		failKlines:     make(map[string]int),
		wsConnections:  make(map[*websocket.Conn]bool),
		wsMu:           sync.RWMutex{},
		streamInterval: config.StreamInterval,
		stopStreaming:  make(chan struct{}),
	}

	for symbol, price := range config.InitialPrices {
		server.currentPrices[symbol] = price
	}

	// Set default stream interval
	if server.streamInterval == 0 {
		server.streamInterval = 100 * time.Millisecond
	}

	return server
}

// Start starts the mock server on the given address.
// If address is empty or ":0", a random available port is used.
func (s *MockExchangeServer) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.listener = listener

	router := mux.NewRouter()

	// REST API endpoints
	router.HandleFunc("/api/v3/klines", s.handleKlines).Methods("GET")
	router.HandleFunc("/api/v3/ticker/price", s.handleTickerPrice).Methods("GET")

	// WebSocket endpoint
	router.HandleFunc("/ws/{symbol}@kline_{interval}", s.handleWebSocket)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	return nil
}

// Stop stops the mock server. It is safe to call more than once.
func (s *MockExchangeServer) Stop() error {
	// Signal streaming to stop
	s.stopOnce.Do(func() {
		close(s.stopStreaming)
	})

	// Close all WebSocket connections
	s.wsMu.Lock()
	for conn := range s.wsConnections {
		conn.Close()
	}

	s.wsConnections = make(map[*websocket.Conn]bool)
	s.wsMu.Unlock()

	// Shutdown HTTP server
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Address returns the address the server is listening on.
func (s *MockExchangeServer) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// BaseURL returns the base URL for the server.
func (s *MockExchangeServer) BaseURL() string {
	return "http://" + s.Address()
}

// WebSocketURL returns the WebSocket URL for the server.
func (s *MockExchangeServer) WebSocketURL() string {
	return "ws://" + s.Address()
}

// SetPrice sets the current price for a symbol.
func (s *MockExchangeServer) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPrices[symbol] = price
}

// GetPrice returns the current price for a symbol.
func (s *MockExchangeServer) GetPrice(symbol string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currentPrices[symbol]
}

// KlineRequests returns how many klines requests the server has served for a
// symbol, counting failed ones.
func (s *MockExchangeServer) KlineRequests(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.klineRequests[symbol]
}

// FailKlines makes the next n klines requests for a symbol fail with a 503.
func (s *MockExchangeServer) FailKlines(symbol string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failKlines[symbol] = n
}

// REST API Handlers

// handleKlines handles GET /api/v3/klines
func (s *MockExchangeServer) handleKlines(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	interval := r.URL.Query().Get("interval")
	startTimeStr := r.URL.Query().Get("startTime")
	endTimeStr := r.URL.Query().Get("endTime")

	if symbol == "" || interval == "" {
		http.Error(w, "Missing required parameters", http.StatusBadRequest)
		return
	}

	intervalDuration := parseInterval(interval)
	if intervalDuration == 0 {
		http.Error(w, "Invalid interval", http.StatusBadRequest)
		return
	}

	// Parse times
	var startTime, endTime time.Time
	if startTimeStr != "" {
		ms, _ := strconv.ParseInt(startTimeStr, 10, 64)
		startTime = time.UnixMilli(ms)
	} else {
		startTime = time.Now().Add(-24 * time.Hour)
	}

	if endTimeStr != "" {
		ms, _ := strconv.ParseInt(endTimeStr, 10, 64)
		endTime = time.UnixMilli(ms)
	} else {
		endTime = time.Now()
	}

	s.mu.Lock()
	s.klineRequests[symbol]++

	if s.failKlines[symbol] > 0 {
		s.failKlines[symbol]--
		s.mu.Unlock()
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)

		return
	}

	initialPrice := s.currentPrices[symbol]
	if initialPrice == 0 {
		initialPrice = 100.0
	}

	numPoints := int(endTime.Sub(startTime) / intervalDuration)
	if numPoints <= 0 {
		numPoints = 1
	}

	if numPoints > klinePageSize {
		numPoints = klinePageSize
	}

	s.mu.Unlock()

	// The seed folds in the window start so identical requests replay
	// identical bars while successive pages draw fresh paths.
	generator := mocks.NewDataGenerator(s.seed + startTime.UnixMilli() + symbolSeed(symbol))
	bars := generator.Generate(mocks.GeneratorConfig{
		Symbol:         symbol,
		StartTime:      startTime,
		Interval:       intervalDuration,
		Count:          numPoints,
		InitialPrice:   initialPrice,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     5000,
		VolumeVariance: 0.3,
	})

	// Exchange kline row: [openTime, open, high, low, close, volume, closeTime, ...]
	klines := make([][]interface{}, 0, len(bars))

	for _, bar := range bars {
		closeTime := bar.Time.Add(intervalDuration).UnixMilli() - 1
		klines = append(klines, []interface{}{
			bar.Time.UnixMilli(),                         // Open time
			strconv.FormatFloat(bar.Open, 'f', 8, 64),    // Open
			strconv.FormatFloat(bar.High, 'f', 8, 64),    // High
			strconv.FormatFloat(bar.Low, 'f', 8, 64),     // Low
			strconv.FormatFloat(bar.Close, 'f', 8, 64),   // Close
			strconv.FormatFloat(bar.Volume, 'f', 8, 64),  // Volume
			closeTime, // Close time
			"0",       // Quote asset volume
			0,         // Number of trades
			"0",       // Taker buy base asset volume
			"0",       // Taker buy quote asset volume
			"0",       // Ignore
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(klines)
}

// handleTickerPrice handles GET /api/v3/ticker/price
func (s *MockExchangeServer) handleTickerPrice(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbolsParam := r.URL.Query().Get("symbols")

	var symbols []string
	if symbolsParam != "" {
		// Parse JSON array of symbols
		if err := json.Unmarshal([]byte(symbolsParam), &symbols); err != nil {
			http.Error(w, "Invalid symbols parameter", http.StatusBadRequest)
			return
		}
	}

	type priceResponse struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}

	var response []priceResponse

	if len(symbols) > 0 {
		for _, sym := range symbols {
			price, ok := s.currentPrices[sym]
			if ok {
				response = append(response, priceResponse{
					Symbol: sym,
					Price:  strconv.FormatFloat(price, 'f', 8, 64),
				})
			}
		}
	} else {
		for sym, price := range s.currentPrices {
			response = append(response, priceResponse{
				Symbol: sym,
				Price:  strconv.FormatFloat(price, 'f', 8, 64),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// WebSocket Handler

// handleWebSocket handles WebSocket connections for kline streaming.
func (s *MockExchangeServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := strings.ToUpper(vars["symbol"])
	interval := vars["interval"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.wsMu.Lock()
	s.wsConnections[conn] = true
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsConnections, conn)
		s.wsMu.Unlock()
		conn.Close()
	}()

	s.streamKlines(conn, symbol, interval)
}

// streamKlines pushes a random-walk kline event per stream tick until the
// connection drops or the server stops.
func (s *MockExchangeServer) streamKlines(conn *websocket.Conn, symbol, interval string) {
	intervalDuration := parseInterval(interval)
	if intervalDuration == 0 {
		intervalDuration = time.Minute
	}

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	currentPrice := s.GetPrice(symbol)
	if currentPrice == 0 {
		currentPrice = 100.0
	}

	rng := rand.New(rand.NewSource(s.seed + symbolSeed(symbol)))
	klineStartTime := time.Now().Truncate(intervalDuration)
	klineOpen := currentPrice
	klineHigh := currentPrice
	klineLow := currentPrice
	klineVolume := 0.0

	for {
		select {
		case <-s.stopStreaming:
			return
		case <-ticker.C:
			currentPrice *= 1 + 0.002*(rng.Float64()*2-1)

			if currentPrice > klineHigh {
				klineHigh = currentPrice
			}

			if currentPrice < klineLow {
				klineLow = currentPrice
			}

			klineVolume += rng.Float64() * 10

			now := time.Now()
			isFinal := now.Sub(klineStartTime) >= intervalDuration

			event := map[string]interface{}{
				"e": "kline",
				"E": now.UnixMilli(),
				"s": symbol,
				"k": map[string]interface{}{
					"t": klineStartTime.UnixMilli(),
					"T": klineStartTime.Add(intervalDuration).UnixMilli() - 1,
					"s": symbol,
					"i": interval,
					"o": strconv.FormatFloat(klineOpen, 'f', 8, 64),
					"c": strconv.FormatFloat(currentPrice, 'f', 8, 64),
					"h": strconv.FormatFloat(klineHigh, 'f', 8, 64),
					"l": strconv.FormatFloat(klineLow, 'f', 8, 64),
					"v": strconv.FormatFloat(klineVolume, 'f', 8, 64),
					"x": isFinal,
				},
			}

			if err := conn.WriteJSON(event); err != nil {
				return
			}

			// Keep the REST surface in step with the stream
			s.SetPrice(symbol, currentPrice)

			if isFinal {
				klineStartTime = now.Truncate(intervalDuration)
				klineOpen = currentPrice
				klineHigh = currentPrice
				klineLow = currentPrice
				klineVolume = 0
			}
		}
	}
}

// parseInterval parses an exchange interval string to a duration.
func parseInterval(interval string) time.Duration {
	if len(interval) < 2 {
		return 0
	}

	numStr := interval[:len(interval)-1]
	unit := interval[len(interval)-1:]

	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0
	}

	switch unit {
	case "s":
		return time.Duration(num) * time.Second
	case "m":
		return time.Duration(num) * time.Minute
	case "h":
		return time.Duration(num) * time.Hour
	case "d":
		return time.Duration(num) * 24 * time.Hour
	case "w":
		return time.Duration(num) * 7 * 24 * time.Hour
	default:
		return 0
	}
}

// symbolSeed derives a stable per-symbol seed offset.
func symbolSeed(symbol string) int64 {
	var sum int64
	for _, c := range symbol {
		sum += int64(c)
	}

	return sum
}
