package registry

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/angeloszaimis/redirect-balancer/internal/backend"
)

const separator = ":"

// Source yields the endpoints to evaluate on each table rebuild.
type Source interface {
	Endpoints() ([]backend.Endpoint, error)
}

// Warning describes a skipped record. Record is the 1-based position of the
// record in the source, counting skipped records too.
type Warning struct {
	Record int
	Line   string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("record %d (%q): %s", w.Record, w.Line, w.Reason)
}

// Load reads host:port records from r and returns the accepted endpoints in
// source order along with a warning per skipped record. An empty result is
// valid. Only read failures are returned as errors.
func Load(r io.Reader, logger *slog.Logger) ([]backend.Endpoint, []Warning, error) {
	var (
		endpoints []backend.Endpoint
		warnings  []Warning
	)

	scanner := bufio.NewScanner(r)
	record := 0

	for scanner.Scan() {
		record++
		line := strings.TrimSpace(scanner.Text())

		endpoint, reason := parseRecord(line)
		if reason != "" {
			w := Warning{Record: record, Line: line, Reason: reason}
			warnings = append(warnings, w)
			logger.Warn("Skipping server record",
				slog.Int("record", record),
				slog.String("line", line),
				slog.String("reason", reason))
			continue
		}

		endpoints = append(endpoints, endpoint)
	}

	if err := scanner.Err(); err != nil {
		return nil, warnings, fmt.Errorf("read server list: %w", err)
	}

	return endpoints, warnings, nil
}

func parseRecord(line string) (backend.Endpoint, string) {
	host, rawPort, found := strings.Cut(line, separator)
	if !found {
		return backend.Endpoint{}, "missing host:port separator"
	}

	if err := validation.Validate(host, validation.Required, is.Host); err != nil {
		return backend.Endpoint{}, "invalid host: " + err.Error()
	}

	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return backend.Endpoint{}, "port is not a number"
	}

	if err := validation.Validate(port, validation.Required, validation.Min(1), validation.Max(65535)); err != nil {
		return backend.Endpoint{}, "invalid port: " + err.Error()
	}

	return backend.Endpoint{Host: host, Port: port}, ""
}

// File is a Source backed by a server list file. The file is read again on
// every call so edits apply on the next rebuild.
type File struct {
	Path   string
	Logger *slog.Logger
}

// Endpoints opens and parses the file.
func (f *File) Endpoints() ([]backend.Endpoint, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open server list: %w", err)
	}
	defer file.Close()

	logger := f.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	endpoints, _, err := Load(file, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("Loaded server list",
		slog.String("file", f.Path),
		slog.Int("endpoints", len(endpoints)))

	return endpoints, nil
}

// Static is a fixed Source.
type Static []backend.Endpoint

// Endpoints returns a copy of the list.
func (s Static) Endpoints() ([]backend.Endpoint, error) {
	return append([]backend.Endpoint(nil), s...), nil
}
