package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage_Get_LastWinsCaseInsensitive(t *testing.T) {
	m := &Message{}
	m.addHeader("X-Custom", "first")
	m.addHeader("x-custom", "second")

	v, ok := m.Get("X-CUSTOM")
	assert.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestMessage_Get_MissingHeader(t *testing.T) {
	m := &Message{}
	_, ok := m.Get("Missing")
	assert.False(t, ok)
}

func TestMessage_Reset_ClearsFieldsButKeepsCapacity(t *testing.T) {
	m := &Message{Method: "GET", Path: "/x", StatusCode: 200}
	m.addHeader("Host", "example.com")
	m.Body = append(m.Body, "payload"...)

	m.reset()

	assert.Empty(t, m.Method)
	assert.Empty(t, m.Path)
	assert.Zero(t, m.StatusCode)
	assert.Empty(t, m.Headers)
	assert.Empty(t, m.Body)
	assert.GreaterOrEqual(t, cap(m.Headers), 1)
	assert.GreaterOrEqual(t, cap(m.Body), len("payload"))
}
