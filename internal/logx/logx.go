package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger that writes JSON lines to a timestamped file
// inside logsDir. The returned closer flushes and closes the file.
func New(logsDir, level string) (*zap.Logger, io.Closer, string, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, nil, "", fmt.Errorf("ensure logs directory: %w", err)
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(logsDir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, "", fmt.Errorf("open log file: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), ParseLevel(level))

	logger := zap.New(core).With(zap.Int("pid", os.Getpid()))
	return logger, closer{logger: logger, file: file}, filePath, nil
}

// ParseLevel maps a level name onto zap, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

type closer struct {
	logger *zap.Logger
	file   *os.File
}

func (c closer) Close() error {
	_ = c.logger.Sync()
	return c.file.Close()
}
