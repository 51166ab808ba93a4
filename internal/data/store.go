// Package data provides historical candle loading. It is the external
// collaborator boundary of the engine: the core consumes an already-assembled
// candle array and never assumes a particular storage or transport.
package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/quantdesk/quant-backend/pkg/types"
)

// ErrNoData is returned when no candles exist for the requested symbol and
// interval. Distinguishable from configuration errors via errors.Is.
var ErrNoData = errors.New("no candle data")

// Loader supplies candle history for a symbol and interval. from/to are unix
// millisecond bounds; zero means unbounded.
type Loader interface {
	Load(ctx context.Context, symbol, interval string, from, to int64) ([]types.Candle, error)
	Symbols() []string
}

// FileStore loads candles from CSV files named <dir>/<symbol>_<interval>.csv
// with rows ts,open,high,low,close,volume,trades. Loaded series are cached.
type FileStore struct {
	mu     sync.RWMutex
	logger *zap.Logger
	dir    string
	cache  map[string][]types.Candle
}

// NewFileStore creates a CSV-backed candle store rooted at dir.
func NewFileStore(logger *zap.Logger, dir string) *FileStore {
	return &FileStore{
		logger: logger,
		dir:    dir,
		cache:  make(map[string][]types.Candle),
	}
}

// Load reads the candle series for symbol/interval, filtered to [from, to].
func (s *FileStore) Load(ctx context.Context, symbol, interval string, from, to int64) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := symbol + "_" + interval
	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()

	if !ok {
		loaded, err := s.readFile(key)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[key] = loaded
		s.mu.Unlock()
		cached = loaded
		s.logger.Info("loaded candle file",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Int("bars", len(loaded)),
		)
	}

	out := filterRange(cached, from, to)
	if len(out) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, interval, ErrNoData)
	}
	return out, nil
}

// Symbols lists the symbols with at least one candle file on disk.
func (s *FileStore) Symbols() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	seen := map[string]bool{}
	var symbols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		base := strings.TrimSuffix(name, ".csv")
		idx := strings.LastIndex(base, "_")
		if idx <= 0 {
			continue
		}
		sym := base[:idx]
		if !seen[sym] {
			seen[sym] = true
			symbols = append(symbols, sym)
		}
	}
	return symbols
}

func (s *FileStore) readFile(key string) ([]types.Candle, error) {
	path := filepath.Join(s.dir, key+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNoData)
		}
		return nil, fmt.Errorf("open candle file %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read candle file %s: %w", path, err)
	}

	candles := make([]types.Candle, 0, len(rows))
	var prevTS int64
	for n, row := range rows {
		if n == 0 && isHeader(row) {
			continue
		}
		if len(row) < 6 {
			return nil, fmt.Errorf("candle file %s row %d: expected at least 6 fields, got %d", path, n+1, len(row))
		}
		c, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("candle file %s row %d: %w", path, n+1, err)
		}
		if c.Timestamp <= prevTS {
			return nil, fmt.Errorf("candle file %s row %d: timestamps not strictly increasing", path, n+1)
		}
		prevTS = c.Timestamp
		candles = append(candles, c)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s: %w", key, ErrNoData)
	}
	return candles, nil
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	return err != nil
}

func parseRow(row []string) (types.Candle, error) {
	var c types.Candle
	ts, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	if err != nil {
		return c, fmt.Errorf("timestamp: %w", err)
	}
	fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
	for i, dst := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return c, fmt.Errorf("field %d: %w", i+1, err)
		}
		*dst = v
	}
	if len(row) > 6 {
		trades, err := strconv.Atoi(strings.TrimSpace(row[6]))
		if err != nil {
			return c, fmt.Errorf("trades: %w", err)
		}
		c.Trades = trades
	}
	c.Timestamp = ts
	return c, nil
}

func filterRange(candles []types.Candle, from, to int64) []types.Candle {
	out := make([]types.Candle, 0, len(candles))
	for _, c := range candles {
		if from > 0 && c.Timestamp < from {
			continue
		}
		if to > 0 && c.Timestamp > to {
			continue
		}
		out = append(out, c)
	}
	return out
}
