package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hn-sampler/src/posts"
)

// ErrParse is matched by every ParseError.
var ErrParse = errors.New("invalid comment count")

// ParseError reports a comment-count field that is not an integer.
type ParseError struct {
	Line   int
	Column int
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: invalid comment count %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParse) true for any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// CommentFilter keeps rows whose comment count is strictly greater than Threshold.
type CommentFilter struct {
	Column    int
	Threshold int64
}

// NewCommentFilter creates a filter on the given column and threshold.
func NewCommentFilter(column int, threshold int64) *CommentFilter {
	return &CommentFilter{Column: column, Threshold: threshold}
}

// Keep reports whether row passes the filter. A missing or non-integer
// comment count is an error, never a silent drop.
func (cf *CommentFilter) Keep(row posts.Row) (bool, error) {
	if cf.Column < 0 || cf.Column >= len(row.Fields) {
		return false, &ParseError{
			Line:   row.Line,
			Column: cf.Column,
			Err:    fmt.Errorf("row has %d fields", len(row.Fields)),
		}
	}
	raw := row.Fields[cf.Column]
	value := strings.TrimSpace(raw)
	n, err := strconv.ParseInt(stripDigitGroups(value), 10, 64)
	if err != nil {
		// Out-of-range values are still integers; only their sign matters here.
		if errors.Is(err, strconv.ErrRange) {
			return !strings.HasPrefix(value, "-"), nil
		}
		return false, &ParseError{Line: row.Line, Column: cf.Column, Value: raw, Err: err}
	}
	return n > cf.Threshold, nil
}

// stripDigitGroups removes the underscores of a digit-grouped integer such as
// "1_000". Values with a misplaced underscore are returned unchanged so that
// ParseInt rejects them.
func stripDigitGroups(value string) string {
	if !strings.Contains(value, "_") {
		return value
	}
	digits := strings.TrimLeft(value, "+-")
	if len(value)-len(digits) > 1 {
		return value
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] != '_' {
			continue
		}
		if i == 0 || i == len(digits)-1 || !isDigit(digits[i-1]) || !isDigit(digits[i+1]) {
			return value
		}
	}
	return strings.ReplaceAll(value, "_", "")
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// Apply returns the rows that pass the filter, in their original order.
// It stops at the first row whose comment count cannot be parsed.
func (cf *CommentFilter) Apply(rows []posts.Row) ([]posts.Row, error) {
	kept := make([]posts.Row, 0, len(rows))
	for _, row := range rows {
		ok, err := cf.Keep(row)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, row)
		}
	}
	return kept, nil
}
