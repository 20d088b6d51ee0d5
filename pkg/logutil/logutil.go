// Package logutil installs a charmbracelet/log logger as the process wide
// log/slog handler.
package logutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/charmbracelet/log"
)

var (
	mu     sync.Mutex
	output io.Writer = os.Stderr
	logger *log.Logger
)

func Configure(levelRaw string) error {
	level, err := ParseLevel(levelRaw)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	logger = log.NewWithOptions(output, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	log.SetDefault(logger)
	slog.SetDefault(slog.New(logger))
	return nil
}

// ParseLevel accepts the charmbracelet level names plus trace, which maps to
// debug. An empty string selects info.
func ParseLevel(levelRaw string) (log.Level, error) {
	levelRaw = strings.ToLower(strings.TrimSpace(levelRaw))
	switch levelRaw {
	case "":
		return log.InfoLevel, nil
	case "trace", "trac":
		return log.DebugLevel, nil
	}
	level, err := log.ParseLevel(levelRaw)
	if err != nil {
		return 0, fmt.Errorf("invalid loglevel %q", levelRaw)
	}
	return level, nil
}

// SetOutput redirects log output, including that of an already configured logger.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	if logger != nil {
		logger.SetOutput(w)
	}
}
