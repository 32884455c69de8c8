package httpx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frezcirno/rpx/httpx"
)

func TestParser_RequestWithContentLength(t *testing.T) {
	p := httpx.NewParser(httpx.ModeRequest)

	var got *httpx.Message
	p.OnMessageComplete(func(m *httpx.Message) { got = cloneMessage(m) })

	raw := "POST /echo HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\n\r\nhello"
	require.NoError(t, p.Advance([]byte(raw)))

	require.NotNil(t, got)
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "/echo", got.Path)
	assert.Equal(t, 1, got.Major)
	assert.Equal(t, 1, got.Minor)
	assert.Equal(t, "hello", string(got.Body))
	host, ok := got.Get("Host")
	assert.True(t, ok)
	assert.Equal(t, "example.com", host)
}

func TestParser_FeedsByteByByte(t *testing.T) {
	p := httpx.NewParser(httpx.ModeRequest)

	var got *httpx.Message
	p.OnMessageComplete(func(m *httpx.Message) { got = cloneMessage(m) })

	raw := "GET / HTTP/1.1\r\nHost: x\r\n\r\n"
	for i := 0; i < len(raw); i++ {
		require.NoError(t, p.Advance([]byte{raw[i]}))
	}

	require.NotNil(t, got)
	assert.Equal(t, "GET", got.Method)
	assert.Empty(t, got.Body)
}

func TestParser_ChunkedBody(t *testing.T) {
	p := httpx.NewParser(httpx.ModeRequest)

	var got *httpx.Message
	p.OnMessageComplete(func(m *httpx.Message) { got = cloneMessage(m) })

	raw := "POST /up HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"
	require.NoError(t, p.Advance([]byte(raw)))

	require.NotNil(t, got)
	assert.Equal(t, "Wikipedia", string(got.Body))
}

func TestParser_ResponseStatusLine(t *testing.T) {
	p := httpx.NewParser(httpx.ModeResponse)

	var got *httpx.Message
	p.OnMessageComplete(func(m *httpx.Message) { got = cloneMessage(m) })

	raw := "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n"
	require.NoError(t, p.Advance([]byte(raw)))

	require.NotNil(t, got)
	assert.Equal(t, 404, got.StatusCode)
	assert.Equal(t, "Not Found", got.Reason)
}

func TestParser_MalformedHeaderReturnsError(t *testing.T) {
	p := httpx.NewParser(httpx.ModeRequest)
	raw := "GET / HTTP/1.1\r\nBadHeaderNoColon\r\n\r\n"
	assert.Error(t, p.Advance([]byte(raw)))
}

func TestParser_KeepAlivePipelineResetsBetweenMessages(t *testing.T) {
	p := httpx.NewParser(httpx.ModeRequest)

	var messages []string
	p.OnMessageComplete(func(m *httpx.Message) { messages = append(messages, m.Path) })

	raw := "GET /one HTTP/1.1\r\n\r\nGET /two HTTP/1.1\r\n\r\n"
	require.NoError(t, p.Advance([]byte(raw)))

	assert.Equal(t, []string{"/one", "/two"}, messages)
}

func cloneMessage(m *httpx.Message) *httpx.Message {
	clone := *m
	clone.Body = append([]byte(nil), m.Body...)
	clone.Headers = append([]httpx.Header(nil), m.Headers...)
	return &clone
}
