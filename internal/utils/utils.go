package utils

import (
	"log"

	"go.uber.org/zap"
)

// Must stops the process on startup errors.
func Must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

// Recover swallows a panic raised while handling one unit of work and logs it.
// Use as: defer utils.Recover(log, "update", id)
func Recover(l *zap.SugaredLogger, what string, keysAndValues ...any) {
	if r := recover(); r != nil {
		l.Errorw("recovered from panic", append([]any{"in", what, "panic", r}, keysAndValues...)...)
	}
}
