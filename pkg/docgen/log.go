package docgen

import (
	"sync"

	"github.com/charmbracelet/log"
)

var (
	loggerMu sync.RWMutex
	logger   = log.WithPrefix("docgen")
)

func init() {
	logger.SetLevel(log.WarnLevel)
}

// SetLogger replaces the package logger used for tracing tokenization,
// evaluation and rendering.
func SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// Logger returns the package logger.
func Logger() *log.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}
