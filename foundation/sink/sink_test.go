package sink_test

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/superfeelapi/goVoiceAgent/foundation/sink"
	"github.com/superfeelapi/goVoiceAgent/foundation/state"
	"go.uber.org/zap"
)

var header = []string{"timestamp", "candidate_name", "interest_status", "summary"}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestCSV(t *testing.T) {
	t.Run("header written once", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "results.csv")

		c, err := sink.NewCSV(path, header)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Append([]string{"ts", "Jordan", "Interested", "call, completed"}); err != nil {
			t.Fatal(err)
		}

		again, err := sink.NewCSV(path, header)
		if err != nil {
			t.Fatal(err)
		}
		if err := again.Append([]string{"ts2", "Sam", "Not Interested", "no"}); err != nil {
			t.Fatal(err)
		}

		rows := readRows(t, path)
		if len(rows) != 3 {
			t.Fatalf("rows = %d, want 3: %v", len(rows), rows)
		}
		if rows[0][0] != "timestamp" || rows[1][3] != "call, completed" {
			t.Fatalf("unexpected rows: %v", rows)
		}
	})

	t.Run("row width checked", func(t *testing.T) {
		t.Parallel()
		c, err := sink.NewCSV(filepath.Join(t.TempDir(), "r.csv"), header)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Append([]string{"only one"}); err == nil {
			t.Fatal("expected width error")
		}
	})

	t.Run("concurrent appends", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "r.csv")
		c, err := sink.NewCSV(path, header)
		if err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = c.Append([]string{"ts", "n", "s", "x"})
			}()
		}
		wg.Wait()

		if rows := readRows(t, path); len(rows) != 21 {
			t.Fatalf("rows = %d, want 21", len(rows))
		}
	})
}

type fakeProducer struct {
	mu      sync.Mutex
	records []any
	err     error
}

func (p *fakeProducer) Produce(data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, data)
	return nil
}

func TestMirrored(t *testing.T) {
	t.Run("publishes keyed record", func(t *testing.T) {
		t.Parallel()
		c, err := sink.NewCSV(filepath.Join(t.TempDir(), "r.csv"), header)
		if err != nil {
			t.Fatal(err)
		}
		p := &fakeProducer{}
		m := sink.NewMirrored(c, p, state.NewState(), zap.NewNop().Sugar())

		if err := m.Append([]string{"ts", "Jordan", "Interested", "done"}); err != nil {
			t.Fatal(err)
		}
		if len(p.records) != 1 {
			t.Fatalf("records = %d, want 1", len(p.records))
		}
		rec := p.records[0].(map[string]string)
		if rec["candidate_name"] != "Jordan" {
			t.Fatalf("record = %v", rec)
		}
	})

	t.Run("mirror failure disables mirror", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "r.csv")
		c, err := sink.NewCSV(path, header)
		if err != nil {
			t.Fatal(err)
		}
		p := &fakeProducer{err: errors.New("connection refused")}
		st := state.NewState()
		m := sink.NewMirrored(c, p, st, zap.NewNop().Sugar())

		if err := m.Append([]string{"ts", "a", "b", "c"}); err != nil {
			t.Fatalf("mirror failure leaked: %v", err)
		}
		if st.Get(state.Redis) {
			t.Fatal("redis should be disabled after failure")
		}
		if rows := readRows(t, path); len(rows) != 2 {
			t.Fatalf("primary rows = %d, want 2", len(rows))
		}
	})
}
