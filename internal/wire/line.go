package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// MaxLineLength bounds a single protocol line, terminators excluded.
const MaxLineLength = 8 << 10

var (
	// ErrStreamClosed is returned when the peer closes the stream in the
	// middle of a line.
	ErrStreamClosed = fmt.Errorf("wire: stream closed mid-line: %w", io.ErrUnexpectedEOF)

	// ErrLineTooLong is returned when a line exceeds MaxLineLength.
	ErrLineTooLong = errors.New("wire: line too long")
)

// LineReader reads LF-terminated lines from a byte stream. Carriage returns are
// dropped wherever they appear. Bytes buffered past the last line stay
// available through Read, so a body can be consumed after its head.
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader wraps r. An existing *bufio.Reader is used as is.
func NewLineReader(r io.Reader) *LineReader {
	if br, ok := r.(*bufio.Reader); ok {
		return &LineReader{r: br}
	}
	return &LineReader{r: bufio.NewReader(r)}
}

// ReadLine blocks until a full line has arrived and returns it without its
// terminators. An empty line marks the end of a header block.
//
// If the stream ends before any byte of the line was read, io.EOF is
// returned. If it ends mid-line, ErrStreamClosed is returned and the partial
// line is discarded.
func (lr *LineReader) ReadLine() (string, error) {
	line := make([]byte, 0, 64)
	started := false

	for {
		b, err := lr.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !started {
					return "", io.EOF
				}
				return "", ErrStreamClosed
			}
			return "", err
		}
		started = true

		switch b {
		case '\r':
			continue
		case '\n':
			return string(line), nil
		}

		if len(line) >= MaxLineLength {
			return "", ErrLineTooLong
		}
		line = append(line, b)
	}
}

// Read reads raw bytes, including any already buffered while reading lines.
func (lr *LineReader) Read(p []byte) (int, error) {
	return lr.r.Read(p)
}
