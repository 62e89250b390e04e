package mocks

import (
	"testing"
)

func TestDataGenerator_Generate(t *testing.T) {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Count = 100

	data := gen.Generate(config)

	if len(data) != 100 {
		t.Errorf("expected 100 bars, got %d", len(data))
	}

	// Verify bars are in chronological order
	for i := 1; i < len(data); i++ {
		if !data[i].Time.After(data[i-1].Time) {
			t.Errorf("bars not in chronological order at index %d", i)
		}
	}

	// Verify symbol is set correctly
	for i, d := range data {
		if d.Symbol != config.Symbol {
			t.Errorf("expected symbol %s at index %d, got %s", config.Symbol, i, d.Symbol)
		}
	}

	// Every bar must pass OHLC sanity
	for i, d := range data {
		if err := d.Validate(); err != nil {
			t.Errorf("invalid bar at index %d: %v", i, err)
		}
	}

	// Verify time intervals
	expectedInterval := config.Interval
	for i := 1; i < len(data); i++ {
		actualInterval := data[i].Time.Sub(data[i-1].Time)
		if actualInterval != expectedInterval {
			t.Errorf("unexpected interval at index %d: expected %v, got %v",
				i, expectedInterval, actualInterval)
		}
	}
}

func TestDataGenerator_Reproducibility(t *testing.T) {
	// Same seed should produce same results
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(42)

	config := DefaultConfig()
	config.Count = 10

	data1 := gen1.Generate(config)
	data2 := gen2.Generate(config)

	for i := range data1 {
		if data1[i].Close != data2[i].Close {
			t.Errorf("data not reproducible at index %d: got %f and %f",
				i, data1[i].Close, data2[i].Close)
		}
	}
}

func TestDataGenerator_Different_Seeds(t *testing.T) {
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(123)

	config := DefaultConfig()
	config.Count = 10

	data1 := gen1.Generate(config)
	data2 := gen2.Generate(config)

	// Different seeds should produce different results
	sameCount := 0

	for i := range data1 {
		if data1[i].Close == data2[i].Close {
			sameCount++
		}
	}

	if sameCount == len(data1) {
		t.Error("different seeds produced identical data")
	}
}

func TestDataGenerator_GenerateHistorical(t *testing.T) {
	gen := NewDataGenerator(7)
	config := DefaultConfig()
	config.Symbol = "AAPL"
	config.Count = 50

	series, err := gen.GenerateHistorical(config)
	if err != nil {
		t.Fatalf("GenerateHistorical failed: %v", err)
	}

	if series.Symbol() != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", series.Symbol())
	}

	if series.Len() != 50 {
		t.Errorf("expected 50 bars, got %d", series.Len())
	}

	first, ok := series.First()
	if !ok || !first.Time.Equal(config.StartTime) {
		t.Errorf("expected first bar at %v, got %v", config.StartTime, first.Time)
	}
}

func TestDataGenerator_GenerateMultiSymbol(t *testing.T) {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 20

	data := gen.GenerateMultiSymbol([]string{"AAPL", "MSFT", "GOOG"}, config)

	if len(data) != 60 {
		t.Errorf("expected 60 bars, got %d", len(data))
	}

	counts := make(map[string]int)
	for _, d := range data {
		counts[d.Symbol]++
	}

	for _, symbol := range []string{"AAPL", "MSFT", "GOOG"} {
		if counts[symbol] != 20 {
			t.Errorf("expected 20 bars for %s, got %d", symbol, counts[symbol])
		}
	}
}

func TestDataGenerator_TrendDirection(t *testing.T) {
	config := DefaultConfig()
	config.Count = 5000
	config.Volatility = 0.0005
	config.Trend = 0.5

	up := NewDataGenerator(42).Generate(config)

	config.Trend = -0.5
	down := NewDataGenerator(42).Generate(config)

	if up[len(up)-1].Close <= up[0].Open {
		t.Errorf("bullish trend did not rise: start %f end %f", up[0].Open, up[len(up)-1].Close)
	}

	if down[len(down)-1].Close >= down[0].Open {
		t.Errorf("bearish trend did not fall: start %f end %f", down[0].Open, down[len(down)-1].Close)
	}
}
