package reactor_test

import (
	"testing"

	"github.com/frezcirno/rpx/reactor"
	"github.com/stretchr/testify/assert"
)

func TestNopLogger_DiscardsAndReportsDisabled(t *testing.T) {
	var logger reactor.NopLogger

	assert.False(t, logger.IsEnabled(reactor.LevelDebug))
	assert.False(t, logger.IsEnabled(reactor.LevelError))

	assert.NotPanics(t, func() {
		logger.Log(reactor.LogEntry{Level: reactor.LevelError, Message: "ignored"})
	})
}

func TestLogEntry_CarriesFieldsAndErr(t *testing.T) {
	entry := reactor.LogEntry{
		Level:   reactor.LevelWarn,
		Message: "something happened",
		Err:     assert.AnError,
		Fields:  map[string]any{"fd": 7},
	}

	assert.Equal(t, reactor.LevelWarn, entry.Level)
	assert.Equal(t, assert.AnError, entry.Err)
	assert.Equal(t, 7, entry.Fields["fd"])
}
