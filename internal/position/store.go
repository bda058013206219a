package position

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"sentinel/internal/atomicfile"
)

// Position is one open lot, keyed in the store by its trade id.
type Position struct {
	Symbol     string    `json:"symbol"`
	Quantity   int       `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	OpenTime   time.Time `json:"open_time"`
}

// Store tracks open positions across restarts. The checkpoint is rewritten
// synchronously after every mutation, matching the ledger's durability model.
type Store struct {
	mu   sync.RWMutex
	path string
	open map[string]Position
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		open: make(map[string]Position),
	}
}

// Load reads the checkpoint. A missing or malformed file starts empty;
// entries with no symbol or non-positive quantity are dropped.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read positions: %w", err)
	}

	var raw map[string]Position
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for tradeID, pos := range raw {
		if pos.Symbol == "" || pos.Quantity <= 0 {
			continue
		}
		s.open[tradeID] = pos
	}
	return nil
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.open, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	if err := atomicfile.Write(s.path, data); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

// Open records a new position under tradeID and checkpoints.
func (s *Store) Open(tradeID string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[tradeID] = pos
	if err := s.save(); err != nil {
		delete(s.open, tradeID)
		return err
	}
	return nil
}

// CloseSymbol removes the position for symbol and checkpoints, returning the
// closed lot so the caller can compute profit. ok is false when no position
// for symbol exists.
func (s *Store) CloseSymbol(symbol string) (tradeID string, pos Position, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.open {
		if p.Symbol == symbol {
			delete(s.open, id)
			if err := s.save(); err != nil {
				s.open[id] = p
				return "", Position{}, false, err
			}
			return id, p, true, nil
		}
	}
	return "", Position{}, false, nil
}

// Quantity returns the total quantity held for symbol.
func (s *Store) Quantity(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, p := range s.open {
		if p.Symbol == symbol {
			total += p.Quantity
		}
	}
	return total
}

// Holds reports whether any open position exists for symbol.
func (s *Store) Holds(symbol string) bool {
	return s.Quantity(symbol) > 0
}

// Len returns the number of open positions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.open)
}
