package pipeline

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"hn-sampler/src/posts"
)

// LoadOptions controls how an input file is decoded and split into fields.
type LoadOptions struct {
	Delimiter rune
	Encoding  string
}

// ValidDelimiter reports whether r can separate fields in a delimited file.
func ValidDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' &&
		utf8.ValidRune(r) && r != utf8.RuneError
}

// Load reads a delimited file into memory. The first record becomes the
// header, every following record a row. Files ending in .gz are gunzipped.
func Load(path string, opts LoadOptions) (*posts.Dataset, error) {
	te, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	raw, err := readInput(path)
	if err != nil {
		return nil, err
	}
	text, err := te.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = delimiterOrDefault(opts.Delimiter)
	// Every record must have as many fields as the header.
	reader.FieldsPerRecord = 0

	head, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s has no header row", ErrMalformedRow, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %w", ErrMalformedRow, err)
	}

	ds := &posts.Dataset{
		Header: posts.Header(head),
		CRLF:   hasCRLF(text),
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
		}
		line, _ := reader.FieldPos(0)
		ds.Rows = append(ds.Rows, posts.Row{Line: line, Fields: record})
	}
	return ds, nil
}

func readInput(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrInputNotFound, err)
		}
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open gzip: %w", ErrDecode, err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", path, err)
	}
	return data, nil
}

// hasCRLF reports whether the first line of text ends with CR LF.
func hasCRLF(text []byte) bool {
	i := bytes.IndexByte(text, '\n')
	return i > 0 && text[i-1] == '\r'
}

func delimiterOrDefault(r rune) rune {
	if r == 0 {
		return ','
	}
	return r
}
