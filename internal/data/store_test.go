package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"go.uber.org/zap"
)

func writeCSV(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadParsesRows(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "BTCUSDT_1h.csv",
		"1700000000000,100,105,99,104,12.5,42\n"+
			"1700003600000,104,110,103,108,9.1,30\n")

	store := NewFileStore(zap.NewNop(), dir)
	candles, err := store.Load(context.Background(), "BTCUSDT", "1h", 0, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}
	c := candles[0]
	if c.Timestamp != 1700000000000 || c.Open != 100 || c.High != 105 || c.Low != 99 || c.Close != 104 {
		t.Errorf("first candle = %+v", c)
	}
	if c.Volume != 12.5 || c.Trades != 42 {
		t.Errorf("volume/trades = %v/%d, want 12.5/42", c.Volume, c.Trades)
	}
}

func TestLoadSkipsHeader(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "ETHUSDT_1h.csv",
		"timestamp,open,high,low,close,volume\n"+
			"1700000000000,10,11,9,10.5,100\n")

	store := NewFileStore(zap.NewNop(), dir)
	candles, err := store.Load(context.Background(), "ETHUSDT", "1h", 0, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("got %d candles, want 1", len(candles))
	}
}

func TestLoadRejectsUnorderedTimestamps(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "BTCUSDT_1h.csv",
		"1700003600000,100,105,99,104,1\n"+
			"1700000000000,104,110,103,108,1\n")

	store := NewFileStore(zap.NewNop(), dir)
	if _, err := store.Load(context.Background(), "BTCUSDT", "1h", 0, 0); err == nil {
		t.Fatal("expected error for non-increasing timestamps")
	}
}

func TestLoadMissingSymbol(t *testing.T) {
	store := NewFileStore(zap.NewNop(), t.TempDir())
	_, err := store.Load(context.Background(), "DOGEUSDT", "1h", 0, 0)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestLoadRangeFilter(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "BTCUSDT_1h.csv",
		"1000,1,1,1,1,1\n"+
			"2000,2,2,2,2,1\n"+
			"3000,3,3,3,3,1\n")

	store := NewFileStore(zap.NewNop(), dir)
	candles, err := store.Load(context.Background(), "BTCUSDT", "1h", 1500, 2500)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(candles) != 1 || candles[0].Timestamp != 2000 {
		t.Fatalf("range filter returned %+v, want single candle at 2000", candles)
	}

	if _, err := store.Load(context.Background(), "BTCUSDT", "1h", 5000, 0); !errors.Is(err, ErrNoData) {
		t.Errorf("empty range: err = %v, want ErrNoData", err)
	}
}

func TestSymbols(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "BTCUSDT_1h.csv", "1000,1,1,1,1,1\n")
	writeCSV(t, dir, "BTCUSDT_4h.csv", "1000,1,1,1,1,1\n")
	writeCSV(t, dir, "ETHUSDT_1h.csv", "1000,1,1,1,1,1\n")
	writeCSV(t, dir, "notes.txt", "not a candle file")

	store := NewFileStore(zap.NewNop(), dir)
	symbols := store.Symbols()
	sort.Strings(symbols)
	if len(symbols) != 2 || symbols[0] != "BTCUSDT" || symbols[1] != "ETHUSDT" {
		t.Fatalf("symbols = %v, want [BTCUSDT ETHUSDT]", symbols)
	}
}
