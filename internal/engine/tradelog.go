package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"sentinel/internal/broker"
	"sentinel/internal/config"
)

// TradeEvent is one executed order, appended to the trade log at submission
// time. The log is append-only: the loop writes, the day-end reporter and
// operators read.
type TradeEvent struct {
	Timestamp  time.Time          `json:"timestamp"`
	TradeID    string             `json:"trade_id"`
	Symbol     string             `json:"symbol"`
	Side       broker.Side        `json:"side"`
	Price      float64            `json:"price"`
	Quantity   int                `json:"quantity"`
	Profile    config.ProfileName `json:"profile"`
	Reason     string             `json:"reason,omitempty"`
	EntryPrice float64            `json:"entry_price,omitempty"`
	Profit     float64            `json:"profit,omitempty"`
	OrderID    string             `json:"order_id,omitempty"`
}

// TradeLog appends trade events as NDJSON, one flushed line per event.
type TradeLog struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

func NewTradeLog(path string) (*TradeLog, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	return &TradeLog{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (t *TradeLog) Append(event TradeEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal trade event: %w", err)
	}
	if _, err := t.writer.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write trade event: %w", err)
	}
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("flush trade log: %w", err)
	}
	return nil
}

func (t *TradeLog) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.writer.Flush(); err != nil {
		_ = t.file.Close()
		return err
	}
	return t.file.Close()
}

// ReadDay returns the trade events whose timestamp falls on day's calendar
// date in day's location. Unparsable lines are skipped.
func ReadDay(path string, day time.Time) ([]TradeEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer file.Close()

	y, m, d := day.Date()
	var events []TradeEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event TradeEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		ey, em, ed := event.Timestamp.In(day.Location()).Date()
		if ey == y && em == m && ed == d {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trade log: %w", err)
	}
	return events, nil
}
