package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bytedance/sonic"
)

// Formats accepted by NewWriter.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Writer appends events to the output artifact, one line each. Workers emit
// concurrently, so writes are serialized.
type Writer struct {
	mu     sync.Mutex
	out    *bufio.Writer
	closer io.Closer
	format string
	run    string
	lines  int
}

// NewWriter wraps w. run is stamped on every JSON line.
func NewWriter(w io.Writer, format, run string) (*Writer, error) {
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("unknown report format %q", format)
	}
	rw := &Writer{out: bufio.NewWriter(w), format: format, run: run}
	if c, ok := w.(io.Closer); ok {
		rw.closer = c
	}
	return rw, nil
}

// Create opens path for writing, truncating any previous report.
func Create(path, format, run string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	w, err := NewWriter(f, format, run)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Emit writes one event.
func (w *Writer) Emit(e Event) error {
	if w == nil {
		return nil
	}

	var line []byte
	if w.format == FormatJSON {
		e.Run = w.run
		data, err := sonic.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode %s event: %w", e.Kind, err)
		}
		line = data
	} else {
		line = []byte(e.Text())
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.out.Write(line); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := w.out.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	w.lines++
	return nil
}

// Lines returns the number of events written so far.
func (w *Writer) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// Flush writes buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Flush()
}

// Close flushes and closes the underlying file, if any.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
