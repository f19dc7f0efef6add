package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"txledger/internal/config"
	"txledger/internal/domain"
)

type Config struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	// Output defaults to stdout.
	Output io.Writer
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	}
}

// Init installs a text handler as the slog default and routes the standard
// log package through it. The returned writer is nil unless File is set.
func Init(cfg Config) (*RotatingWriter, error) {
	level := ParseLevel(cfg.Level)
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	writers := []io.Writer{out}

	var rotating *RotatingWriter
	if strings.TrimSpace(cfg.File) != "" {
		writer, err := NewRotatingWriter(cfg.File, cfg.MaxSizeMB, cfg.MaxBackups)
		if err != nil {
			return nil, err
		}
		rotating = writer
		writers = append(writers, writer)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(handler, level).Writer())

	return rotating, nil
}

func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Hash is the terse form used in log lines; payloads keep the full hash.
func Hash(hash domain.TransactionHash) slog.Attr {
	return slog.String("hash", hash.Short())
}
