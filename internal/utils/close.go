package utils

import (
	"io"

	"github.com/MrSnakeDoc/checkit/internal/logger"
)

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer where error handling is not critical.
func Close(c io.Closer) {
	_ = c.Close()
}

// CloseFunc runs a close function and logs its error under name.
func CloseFunc(name string, fn func() error, log logger.Logger) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		log.Warn("failed to close", logger.String("component", name), logger.Error(err))
		return
	}
	log.Debug("closed", logger.String("component", name))
}
