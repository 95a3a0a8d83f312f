package pipeline

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hn-sampler/src/posts"
)

// WriteOptions controls the delimited-text convention of the output file.
type WriteOptions struct {
	Delimiter rune
	CRLF      bool
	Encoding  string
	// Atomic writes to a temporary file next to the destination and renames
	// it into place only once everything has been flushed and closed.
	Atomic bool
}

// Write creates or truncates path and writes header followed by rows.
// Paths ending in .gz are gzip-compressed. Every error wraps ErrWrite.
func Write(path string, header posts.Header, rows []posts.Row, opts WriteOptions) error {
	te, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if !opts.Atomic {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		if err := writeRecords(f, te, header, rows, opts, strings.HasSuffix(path, ".gz")); err != nil {
			f.Close()
			return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
		}
		return nil
	}

	tmp, err := createTemp(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if err := writeRecords(tmp, te, header, rows, opts, strings.HasSuffix(path, ".gz")); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	committed = true
	return nil
}

// createTemp creates an empty file next to path that ends up with the mode
// os.Create would leave on path: the mode of an existing file, or 0666
// filtered through the umask for a new one.
func createTemp(path string) (*os.File, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	for i := 0; i < 100; i++ {
		name := filepath.Join(dir, "."+base+".tmp-"+strconv.FormatUint(uint64(rand.Uint32()), 36))
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			if err := f.Chmod(info.Mode().Perm()); err != nil {
				f.Close()
				os.Remove(name)
				return nil, err
			}
		}
		return f, nil
	}
	return nil, fmt.Errorf("could not create a temporary file for %s", path)
}

// writeRecords writes header and rows to w through the optional gzip and
// encoding layers, flushing and closing both layers before returning.
func writeRecords(w io.Writer, te textEncoding, header posts.Header, rows []posts.Row, opts WriteOptions, compress bool) error {
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(w)
		w = gz
	}
	enc, err := te.newWriter(w)
	if err != nil {
		return err
	}

	delim := delimiterOrDefault(opts.Delimiter)
	eol := "\n"
	if opts.CRLF {
		eol = "\r\n"
	}
	bw := bufio.NewWriter(enc)
	var line []byte
	writeLine := func(fields []string) error {
		line = AppendRecord(line[:0], fields, delim)
		line = append(line, eol...)
		_, err := bw.Write(line)
		return err
	}

	if err := writeLine(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := writeLine(row.Fields); err != nil {
			return fmt.Errorf("failed to write row from line %d: %w", row.Line, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if gz != nil {
		return gz.Close()
	}
	return nil
}
