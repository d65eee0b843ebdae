package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/superfeelapi/goVoiceAgent/foundation/logger"
)

func TestNew(t *testing.T) {
	t.Run("file output", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		log, err := logger.New(dir, "", "recruiter", "room-1")
		if err != nil {
			t.Fatal(err)
		}
		log.Infow("logger: test", "key", "value")
		_ = log.Sync()

		b, err := os.ReadFile(filepath.Join(dir, "recruiter", "room-1.log"))
		if err != nil {
			t.Fatal(err)
		}
		if len(b) == 0 {
			t.Fatal("expected log output in file")
		}
	})

	t.Run("stdout output", func(t *testing.T) {
		t.Parallel()
		if _, err := logger.New("", "debug", "shop", "room-2"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("level filters output", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		log, err := logger.New(dir, "warn", "shop", "room-3")
		if err != nil {
			t.Fatal(err)
		}
		log.Infow("logger: dropped")
		_ = log.Sync()

		b, err := os.ReadFile(filepath.Join(dir, "shop", "room-3.log"))
		if err != nil {
			t.Fatal(err)
		}
		if len(b) != 0 {
			t.Fatalf("info entry written at warn level: %s", b)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		t.Parallel()
		if _, err := logger.New("", "loud", "shop", "room-4"); err == nil {
			t.Fatal("expected level error")
		}
	})
}
