package httpx

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ParserMode selects whether a Parser reads request lines or status lines.
type ParserMode int

const (
	ModeRequest ParserMode = iota
	ModeResponse
)

type parseState int

const (
	stateStartLine parseState = iota
	stateHeaders
	stateBody
	stateChunkSize
	stateChunkData
	stateChunkCRLF
	stateChunkTrailer
	stateDone
)

// Parser is an incremental HTTP/1.1 message parser: bytes arrive via
// Advance in whatever chunks the transport delivers them, headers
// and full messages are reported through callbacks, and chunked
// Transfer-Encoding is unwrapped internally so callers only ever see
// Message.Body as flat bytes. A Parser resets its message slot after every
// completed message, so one Parser can walk an entire keep-alive pipeline.
type Parser struct {
	mode  ParserMode
	state parseState
	scan  []byte

	msg Message

	chunked   bool
	remaining int // bytes left for the current content-length or chunk body

	onHeadersComplete func(*Message)
	onMessageComplete func(*Message)
}

// NewParser constructs a parser for the given mode.
func NewParser(mode ParserMode) *Parser {
	return &Parser{mode: mode, state: stateStartLine}
}

// OnHeadersComplete installs the callback fired once the blank line ending
// the header block has been seen.
func (p *Parser) OnHeadersComplete(cb func(*Message)) { p.onHeadersComplete = cb }

// OnMessageComplete installs the callback fired once a full message
// (headers plus any body) has been parsed.
func (p *Parser) OnMessageComplete(cb func(*Message)) { p.onMessageComplete = cb }

// Advance feeds newly-arrived bytes into the parser, running the state
// machine as far forward as the available bytes allow. Unconsumed bytes
// (a partial line, a partial chunk) are retained internally for the next
// call.
func (p *Parser) Advance(data []byte) error {
	p.scan = append(p.scan, data...)
	for {
		progressed, err := p.step()
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

func (p *Parser) step() (bool, error) {
	switch p.state {
	case stateStartLine:
		line, ok := p.takeLine()
		if !ok {
			return false, nil
		}
		if err := p.parseStartLine(line); err != nil {
			return false, err
		}
		p.state = stateHeaders
		return true, nil

	case stateHeaders:
		line, ok := p.takeLine()
		if !ok {
			return false, nil
		}
		if len(line) == 0 {
			return p.headersComplete()
		}
		name, value, err := parseHeaderLine(line)
		if err != nil {
			return false, err
		}
		p.msg.addHeader(name, value)
		return true, nil

	case stateBody:
		if p.remaining == 0 {
			return p.messageComplete()
		}
		if len(p.scan) == 0 {
			return false, nil
		}
		n := p.remaining
		if n > len(p.scan) {
			n = len(p.scan)
		}
		p.msg.Body = append(p.msg.Body, p.scan[:n]...)
		p.consume(n)
		p.remaining -= n
		return true, nil

	case stateChunkSize:
		line, ok := p.takeLine()
		if !ok {
			return false, nil
		}
		size, err := parseChunkSize(line)
		if err != nil {
			return false, err
		}
		if size == 0 {
			p.state = stateChunkTrailer
			return true, nil
		}
		p.remaining = size
		p.state = stateChunkData
		return true, nil

	case stateChunkData:
		if p.remaining == 0 {
			p.state = stateChunkCRLF
			return true, nil
		}
		if len(p.scan) == 0 {
			return false, nil
		}
		n := p.remaining
		if n > len(p.scan) {
			n = len(p.scan)
		}
		p.msg.Body = append(p.msg.Body, p.scan[:n]...)
		p.consume(n)
		p.remaining -= n
		return true, nil

	case stateChunkCRLF:
		if _, ok := p.takeLine(); !ok {
			return false, nil
		}
		p.state = stateChunkSize
		return true, nil

	case stateChunkTrailer:
		line, ok := p.takeLine()
		if !ok {
			return false, nil
		}
		if len(line) == 0 {
			return p.messageComplete()
		}
		// Trailer headers, if any, are folded into the message's header set.
		name, value, err := parseHeaderLine(line)
		if err != nil {
			return false, err
		}
		p.msg.addHeader(name, value)
		return true, nil

	case stateDone:
		return false, nil

	default:
		return false, fmt.Errorf("httpx: parser in unknown state %d", p.state)
	}
}

func (p *Parser) headersComplete() (bool, error) {
	if p.onHeadersComplete != nil {
		p.onHeadersComplete(&p.msg)
	}

	if te, ok := p.msg.Get("Transfer-Encoding"); ok && strings.EqualFold(strings.TrimSpace(te), "chunked") {
		p.chunked = true
		p.state = stateChunkSize
		return true, nil
	}

	if cl, ok := p.msg.Get("Content-Length"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || n < 0 {
			return false, fmt.Errorf("httpx: invalid Content-Length %q", cl)
		}
		p.remaining = n
		p.state = stateBody
		return true, nil
	}

	if p.mode == ModeRequest && (p.msg.Method == "HEAD" || p.msg.Method == "GET") {
		p.remaining = 0
		p.state = stateBody
		return true, nil
	}

	// No framing information: a response with neither header is treated
	// as bodyless here rather than reading until connection close.
	p.remaining = 0
	p.state = stateBody
	return true, nil
}

func (p *Parser) messageComplete() (bool, error) {
	if p.onMessageComplete != nil {
		p.onMessageComplete(&p.msg)
	}
	p.msg.reset()
	p.chunked = false
	p.remaining = 0
	p.state = stateStartLine
	return true, nil
}

// takeLine extracts one CRLF- or LF-terminated line from the front of scan,
// consuming it (and its terminator) from the buffer.
func (p *Parser) takeLine() ([]byte, bool) {
	idx := bytes.IndexByte(p.scan, '\n')
	if idx < 0 {
		return nil, false
	}
	end := idx
	if end > 0 && p.scan[end-1] == '\r' {
		end--
	}
	line := append([]byte(nil), p.scan[:end]...)
	p.consume(idx + 1)
	return line, true
}

func (p *Parser) consume(n int) {
	copy(p.scan, p.scan[n:])
	p.scan = p.scan[:len(p.scan)-n]
}

func (p *Parser) parseStartLine(line []byte) error {
	fields := strings.Fields(string(line))
	if p.mode == ModeRequest {
		if len(fields) != 3 {
			return fmt.Errorf("httpx: malformed request line %q", line)
		}
		p.msg.Method = fields[0]
		p.msg.Path = fields[1]
		major, minor, err := parseVersion(fields[2])
		if err != nil {
			return err
		}
		p.msg.Major, p.msg.Minor = major, minor
		return nil
	}

	if len(fields) < 2 {
		return fmt.Errorf("httpx: malformed status line %q", line)
	}
	major, minor, err := parseVersion(fields[0])
	if err != nil {
		return err
	}
	p.msg.Major, p.msg.Minor = major, minor
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("httpx: malformed status code %q", fields[1])
	}
	p.msg.StatusCode = code
	if len(fields) > 2 {
		p.msg.Reason = strings.Join(fields[2:], " ")
	}
	return nil
}

func parseVersion(s string) (major, minor int, err error) {
	if !strings.HasPrefix(s, "HTTP/") {
		return 0, 0, fmt.Errorf("httpx: malformed HTTP version %q", s)
	}
	rest := strings.TrimPrefix(s, "HTTP/")
	parts := strings.SplitN(rest, ".", 2)
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("httpx: malformed HTTP version %q", s)
	}
	if len(parts) == 2 {
		minor, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("httpx: malformed HTTP version %q", s)
		}
	}
	return major, minor, nil
}

func parseHeaderLine(line []byte) (name, value string, err error) {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return "", "", fmt.Errorf("httpx: malformed header line %q", line)
	}
	name = strings.TrimSpace(string(line[:idx]))
	value = strings.TrimSpace(string(line[idx+1:]))
	if name == "" {
		return "", "", fmt.Errorf("httpx: empty header name")
	}
	return name, value, nil
}

func parseChunkSize(line []byte) (int, error) {
	s := string(line)
	if idx := strings.IndexByte(s, ';'); idx >= 0 {
		s = s[:idx]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 16, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("httpx: malformed chunk size %q", line)
	}
	return int(n), nil
}
