package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// textEncoding describes how file bytes map to text.
// A nil enc means UTF-8, which is validated rather than transcoded.
type textEncoding struct {
	name string
	bom  bool
	enc  encoding.Encoding
}

// lookupEncoding resolves an encoding name. Besides the IANA names known to
// x/text it accepts "utf-8-sig" for UTF-8 files that start with a byte order mark.
func lookupEncoding(name string) (textEncoding, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "utf-8", "utf8":
		return textEncoding{name: "utf-8"}, nil
	case "utf-8-sig", "utf8-sig":
		return textEncoding{name: "utf-8-sig", bom: true}, nil
	}
	enc, err := ianaindex.IANA.Encoding(n)
	if err != nil || enc == nil {
		return textEncoding{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return textEncoding{name: n, enc: enc}, nil
}

func (te textEncoding) decode(raw []byte) ([]byte, error) {
	if te.enc == nil {
		if te.bom {
			raw = bytes.TrimPrefix(raw, utf8BOM)
		}
		if off := invalidUTF8Offset(raw); off >= 0 {
			return nil, fmt.Errorf("%w: invalid %s sequence at byte %d", ErrDecode, te.name, off)
		}
		return raw, nil
	}
	out, err := te.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, te.name, err)
	}
	// x/text decoders substitute U+FFFD for invalid input instead of failing.
	if i := bytes.Index(out, replacementChar); i >= 0 && !te.representsReplacement(raw) {
		line := 1 + bytes.Count(out[:i], []byte("\n"))
		return nil, fmt.Errorf("%w: invalid %s sequence on line %d", ErrDecode, te.name, line)
	}
	return out, nil
}

var replacementChar = []byte(string(utf8.RuneError))

// representsReplacement reports whether U+FFFD has a real encoding in te and
// that encoding occurs in raw, in which case a decoded U+FFFD may be genuine.
func (te textEncoding) representsReplacement(raw []byte) bool {
	encoded, err := te.enc.NewEncoder().Bytes(replacementChar)
	if err != nil || len(encoded) == 0 {
		return false
	}
	back, err := te.enc.NewDecoder().Bytes(encoded)
	if err != nil || !bytes.Equal(back, replacementChar) {
		return false
	}
	return bytes.Contains(raw, encoded)
}

// newWriter wraps w so that UTF-8 text written to it reaches w in this
// encoding. Close must be called to flush a transcoding writer; it does not
// close w.
func (te textEncoding) newWriter(w io.Writer) (io.WriteCloser, error) {
	if te.bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return nil, err
		}
	}
	if te.enc == nil {
		return nopWriteCloser{w}, nil
	}
	return transform.NewWriter(w, te.enc.NewEncoder()), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// invalidUTF8Offset returns the byte offset of the first invalid UTF-8
// sequence in b, or -1 if b is valid.
func invalidUTF8Offset(b []byte) int {
	if utf8.Valid(b) {
		return -1
	}
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
