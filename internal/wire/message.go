package wire

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Status codes that carry meaning in this protocol. Codes are compared as raw
// text, never as numbers.
const (
	StatusOK                 = "200"
	StatusMovedPermanently   = "301"
	StatusServiceUnavailable = "503"
)

const (
	headerContentLength = "Content-Length:"
	headerContentType   = "Content-Type:"
	headerLocation      = "Location:"
)

var (
	// ErrMalformedLine is returned for request or status lines without a
	// second whitespace-separated token.
	ErrMalformedLine = errors.New("wire: malformed protocol line")

	// ErrMalformedHeader is returned when a Content-Length value cannot frame
	// a body.
	ErrMalformedHeader = errors.New("wire: malformed header")
)

// reasonPhrases lists the only statuses the balancer ever emits.
var reasonPhrases = map[string]string{
	StatusMovedPermanently:   "Moved Permanently",
	StatusServiceUnavailable: "Service Unavailable",
}

// Request is a parsed request line.
type Request struct {
	Method string
	Path   string
	Proto  string
}

// ResponseHead holds the response fields this protocol cares about.
type ResponseHead struct {
	StatusCode    string
	ContentType   string
	ContentLength int64
	Location      string
	Date          time.Time
}

// BuildRequestLine returns a complete GET request for path on host:port. The
// values are used verbatim.
func BuildRequestLine(host string, port int, path string) string {
	return fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s:%d\r\n\r\n", path, host, port)
}

// ParseRequestLine splits a request line into method, path and protocol.
func ParseRequestLine(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Request{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}

	req := Request{Method: fields[0], Path: fields[1]}
	if len(fields) > 2 {
		req.Proto = fields[2]
	}
	return req, nil
}

// ReadRequest reads one request line and discards the header block after it.
func ReadRequest(lr *LineReader) (Request, error) {
	line, err := lr.ReadLine()
	if err != nil {
		return Request{}, fmt.Errorf("read request line: %w", err)
	}

	req, err := ParseRequestLine(line)
	if err != nil {
		return Request{}, err
	}

	for {
		header, err := lr.ReadLine()
		if err != nil {
			return Request{}, fmt.Errorf("read request headers: %w", err)
		}
		if header == "" {
			return req, nil
		}
	}
}

// ParseResponseHead reads a status line and its header block. A missing
// Content-Length means an empty body.
func ParseResponseHead(lr *LineReader) (ResponseHead, error) {
	line, err := lr.ReadLine()
	if err != nil {
		return ResponseHead{}, fmt.Errorf("read status line: %w", err)
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ResponseHead{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}

	head := ResponseHead{StatusCode: fields[1]}

	for {
		line, err := lr.ReadLine()
		if err != nil {
			return ResponseHead{}, fmt.Errorf("read response headers: %w", err)
		}
		if line == "" {
			return head, nil
		}

		name, value := splitHeader(line)
		switch name {
		case headerContentLength:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 0 {
				return ResponseHead{}, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
			}
			head.ContentLength = n
		case headerLocation:
			head.Location = value
		case headerContentType:
			head.ContentType = value
		}
	}
}

// splitHeader splits on single spaces and returns the first two tokens.
func splitHeader(line string) (name, value string) {
	parts := strings.Split(line, " ")
	name = parts[0]
	if len(parts) > 1 {
		value = parts[1]
	}
	return name, value
}

// BuildResponseHead renders a response head dated now. Only 301 and 503 are
// valid codes; anything else panics.
func BuildResponseHead(code, contentType string, contentLength int64, location string) string {
	return ResponseHead{
		StatusCode:    code,
		ContentType:   contentType,
		ContentLength: contentLength,
		Location:      location,
		Date:          time.Now(),
	}.Format()
}

// Format renders the head, including the terminating blank line.
func (h ResponseHead) Format() string {
	phrase, ok := reasonPhrases[h.StatusCode]
	if !ok {
		panic(fmt.Sprintf("wire: no reason phrase for status %q", h.StatusCode))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %s %s\r\n", h.StatusCode, phrase)
	fmt.Fprintf(&b, "Date: %s\r\n", h.Date.UTC().Format(http.TimeFormat))
	fmt.Fprintf(&b, "%s %s\r\n", headerContentType, h.ContentType)
	fmt.Fprintf(&b, "%s %d\r\n", headerContentLength, h.ContentLength)
	fmt.Fprintf(&b, "%s %s\r\n", headerLocation, h.Location)
	b.WriteString("\r\n")
	return b.String()
}

// ContentType guesses a body type from a file name: HTML pages are served as
// text/html, everything else as application/octet-stream.
func ContentType(name string) string {
	if strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm") {
		return "text/html"
	}
	return "application/octet-stream"
}
