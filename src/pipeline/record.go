package pipeline

import (
	"strings"
	"unicode/utf8"
)

// AppendRecord appends fields to dst as one delimited line without its line
// terminator. A field is quoted only when it contains the delimiter, a double
// quote, CR or LF; everything else, leading and trailing spaces included, is
// written as is. A record made of a single empty field is written as "" so
// that it still reads back as one field.
func AppendRecord(dst []byte, fields []string, delimiter rune) []byte {
	delimiter = delimiterOrDefault(delimiter)
	if len(fields) == 1 && fields[0] == "" {
		return append(dst, `""`...)
	}
	for i, field := range fields {
		if i > 0 {
			dst = utf8.AppendRune(dst, delimiter)
		}
		if !fieldNeedsQuotes(field, delimiter) {
			dst = append(dst, field...)
			continue
		}
		dst = append(dst, '"')
		dst = append(dst, strings.ReplaceAll(field, `"`, `""`)...)
		dst = append(dst, '"')
	}
	return dst
}

func fieldNeedsQuotes(field string, delimiter rune) bool {
	return strings.ContainsRune(field, delimiter) || strings.ContainsAny(field, "\"\r\n")
}
