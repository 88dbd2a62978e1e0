package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer streams records into a JSONL file, replacing any previous content.
// Outputs are full-refresh artifacts, so there is no append mode.
type Writer struct {
	path string
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

// NewWriter creates the parent directory if needed and truncates path.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}

	buf := bufio.NewWriter(file)
	return &Writer{path: path, file: file, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Write appends one record as a JSON line.
func (w *Writer) Write(record any) error {
	if err := w.enc.Encode(record); err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return nil
}

// Close flushes buffered lines and closes the file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush %s: %w", w.path, err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.path, err)
	}
	return nil
}

// WriteAll replaces path with one JSON line per record.
func WriteAll[T any](path string, records []T) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	for i := range records {
		if err := w.Write(records[i]); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// ReadAll decodes every line of a JSONL file into T. Canonical artifacts are
// written by this pipeline, so a malformed line is a hard error, not a skip.
func ReadAll[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var out []T
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out = append(out, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}

	return out, nil
}
