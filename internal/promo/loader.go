package promo

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Loader reads one promo source file into a Set.
type Loader interface {
	Load(ctx context.Context, path string) (Set, error)
}

// fileLoader reads gzipped promo files from the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a file-system promo loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "promo-loader").Logger(),
	}
}

// Load reads a gzipped promo file, one code per line.
func (l *fileLoader) Load(ctx context.Context, path string) (Set, error) {
	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open promo file")
		return nil, fmt.Errorf("failed to open promo file %s: %w", path, err)
	}
	defer file.Close()

	set, err := readCodes(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read promo file %s: %w", path, err)
	}

	l.logger.Info().
		Str("file", path).
		Int("codes_loaded", set.Size()).
		Msg("promo file loaded")

	return set, nil
}

// readCodes decompresses and scans a promo source stream into a set.
func readCodes(ctx context.Context, r io.Reader) (Set, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	set := newMapSet(1024)

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineCount := 0
	for scanner.Scan() {
		// Large files can take a while; honour cancellation periodically.
		if lineCount%1_000_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		if line := strings.TrimSpace(scanner.Text()); line != "" {
			set.add(line)
			lineCount++
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning promo source: %w", err)
	}

	return set, nil
}
