package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression is inferred from the artifact's extension.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// CompressionFor returns the compression implied by path.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// Encode writes array as space-separated integers.
func Encode(w io.Writer, array []int) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 8)
	for _, v := range array {
		buf = strconv.AppendInt(buf[:0], int64(v), 10)
		buf = append(buf, ' ')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode reads whitespace-separated integers until EOF.
func Decode(r io.Reader) ([]int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	var array []int
	for sc.Scan() {
		v, err := strconv.Atoi(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", len(array), err)
		}
		array = append(array, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return array, nil
}

// Write persists array to path, compressing it when the extension asks for it.
func Write(path string, array []int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create input artifact: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close input artifact: %w", cerr)
		}
	}()

	var w io.WriteCloser
	switch CompressionFor(path) {
	case CompressionGzip:
		w = gzip.NewWriter(f)
	case CompressionZstd:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		w = zw
	default:
		return wrapWrite(Encode(f, array))
	}

	if err := Encode(w, array); err != nil {
		w.Close()
		return wrapWrite(err)
	}
	return wrapWrite(w.Close())
}

func wrapWrite(err error) error {
	if err != nil {
		return fmt.Errorf("failed to write input artifact: %w", err)
	}
	return nil
}

// Read loads an array previously written by Write.
func Read(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input artifact: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch CompressionFor(path) {
	case CompressionGzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gr.Close()
		r = gr
	case CompressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	array, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse input artifact %s: %w", path, err)
	}
	if len(array) == 0 {
		return nil, fmt.Errorf("%w: input artifact %s is empty", ErrInvalidSize, path)
	}
	return array, nil
}
