// Package sink provides the append-only record writers a call is flushed to.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/superfeelapi/goVoiceAgent/foundation/state"
	"go.uber.org/zap"
)

// CSV appends rows to a file, writing the header once when the file is new
// or empty.
type CSV struct {
	mu     sync.Mutex
	path   string
	header []string
}

func NewCSV(path string, header []string) (*CSV, error) {
	c := &CSV{
		path:   path,
		header: append([]string(nil), header...),
	}
	if err := c.ensureHeader(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CSV) Header() []string {
	return append([]string(nil), c.header...)
}

func (c *CSV) Append(row []string) error {
	if len(row) != len(c.header) {
		return fmt.Errorf("sink: row has %d fields, header has %d", len(row), len(c.header))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureHeader(); err != nil {
		return err
	}

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("sink: open %s: %w", c.path, err)
	}
	defer f.Close()

	return writeRow(f, row)
}

func (c *CSV) ensureHeader() error {
	info, err := os.Stat(c.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("sink: stat %s: %w", c.path, err)
	}

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("sink: create %s: %w", c.path, err)
	}
	defer f.Close()

	return writeRow(f, c.header)
}

func writeRow(f *os.File, row []string) error {
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("sink: write: %w", err)
	}
	w.Flush()
	return w.Error()
}

// =================================================================================================================

// Producer publishes a record to a secondary channel.
type Producer interface {
	Produce(data any) error
}

// Mirrored writes to the primary CSV and then, while the mirror is still
// healthy, publishes the same row keyed by header to the producer. A mirror
// failure disables it for the rest of the call and is never returned.
type Mirrored struct {
	primary  *CSV
	producer Producer
	state    *state.State
	logger   *zap.SugaredLogger
}

func NewMirrored(primary *CSV, producer Producer, st *state.State, logger *zap.SugaredLogger) *Mirrored {
	return &Mirrored{
		primary:  primary,
		producer: producer,
		state:    st,
		logger:   logger,
	}
}

func (m *Mirrored) Append(row []string) error {
	if err := m.primary.Append(row); err != nil {
		return err
	}

	if m.producer == nil || !m.state.Get(state.Redis) {
		return nil
	}

	record := make(map[string]string, len(row))
	for i, h := range m.primary.Header() {
		record[h] = row[i]
	}

	if err := m.producer.Produce(record); err != nil {
		m.state.Set(state.Redis, false)
		m.logger.Errorw("sink: mirror", "ERROR", err)
	}

	return nil
}
