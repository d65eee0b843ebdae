package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the call logger. With an empty logDirectory the output goes to
// stdout, otherwise to <logDirectory>/<flow>/<room>.log. An empty level means
// info.
func New(logDirectory string, level string, flow string, room string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = false

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("logger: level: %w", err)
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	if logDirectory != "" {
		flowDirectory := filepath.Join(logDirectory, flow)
		logPath := filepath.Join(flowDirectory, room+".log")

		if _, err := os.Stat(flowDirectory); os.IsNotExist(err) {
			if err := os.MkdirAll(flowDirectory, os.ModePerm); err != nil {
				return nil, err
			}
		}

		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, err
		}
		f.Close()

		config.OutputPaths = []string{logPath}
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.With(zap.String("flow", flow), zap.String("room", room)).Sugar(), nil
}
