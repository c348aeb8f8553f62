package reader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/vegasq/lazycsv/table"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// source couples a decompressing reader with the file it reads from so
// both are released by a single Close
type source struct {
	io.Reader
	closers []func() error
}

func (s *source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openSource opens path and transparently decompresses gzip or zstd
// content, detected by magic bytes rather than file extension
func openSource(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open file: %w", table.ErrIO, err)
	}

	buffered := bufio.NewReaderSize(file, 64*1024)
	head, err := buffered.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		_ = file.Close()
		return nil, fmt.Errorf("%w: failed to read %s: %v", table.ErrIO, path, err)
	}

	src := &source{Reader: buffered, closers: []func() error{file.Close}}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("%w: %s: invalid gzip stream: %v", table.ErrIO, path, err)
		}
		src.Reader = gz
		src.closers = append(src.closers, gz.Close)
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(buffered)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("%w: %s: invalid zstd stream: %v", table.ErrIO, path, err)
		}
		src.Reader = dec
		src.closers = append(src.closers, func() error {
			dec.Close()
			return nil
		})
	}

	return src, nil
}

// Shape counts the data rows and columns of a CSV file without converting
// any values. Malformed rows are reported as table.ErrParse.
func Shape(path string, opts Options) (rows int, cols int, err error) {
	opts = opts.normalized()
	src, err := openSource(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = src.Close() }()

	r := &Reader{path: path, opts: opts}
	cr := r.newCSVReader(src)

	first := true
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, 0, wrapCSVError(path, err)
		}
		if first {
			first = false
			cols = len(record)
			if opts.HasHeader {
				continue
			}
		} else if len(record) != cols {
			line, _ := cr.FieldPos(0)
			return 0, 0, fmt.Errorf("%w: %s:%d: expected %d fields, got %d", table.ErrParse, path, line, cols, len(record))
		}
		rows++
	}
	return rows, cols, nil
}
