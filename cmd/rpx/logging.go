package main

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/frezcirno/rpx/rpxlog"
)

// newLogger builds the rpxlog.Logger installed on every server/client/proxy
// in this binary, writing to stderr in zerolog's console format.
func newLogger(levelName string) *rpxlog.Logger {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
	return rpxlog.New(zl)
}
