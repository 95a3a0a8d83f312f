package filter

import (
	"errors"
	"strconv"
	"testing"

	"hn-sampler/src/posts"
)

func row(line int, fields ...string) posts.Row {
	return posts.Row{Line: line, Fields: fields}
}

func TestCommentFilterKeep(t *testing.T) {
	cf := NewCommentFilter(4, 0)

	testCases := []struct {
		value    string
		shouldBe bool
	}{
		{"0", false},
		{"1", true},
		{"5", true},
		{"-3", false},
		{"+2", true},
		{" 7 ", true},
		{"00", false},
		{"99999999999999999999999", true},
		{"-99999999999999999999999", false},
		{"1_000", true},
		{"-1_0", false},
		{"+0_0", false},
		{"99_999_999_999_999_999_999_999", true},
	}

	for _, tc := range testCases {
		ok, err := cf.Keep(row(2, "1", "t", "u", "a", tc.value))
		if err != nil {
			t.Errorf("Keep(%q) returned error: %v", tc.value, err)
			continue
		}
		if ok != tc.shouldBe {
			t.Errorf("Keep(%q) = %v, expected %v", tc.value, ok, tc.shouldBe)
		}
	}
}

func TestCommentFilterParseErrors(t *testing.T) {
	cf := NewCommentFilter(4, 0)

	for _, value := range []string{"", "abc", "3.5", "1e3", "12abc", "_1", "1_", "1__0", "+_1", "--1_0", "0x1_0"} {
		_, err := cf.Keep(row(9, "1", "t", "u", "a", value))
		if err == nil {
			t.Errorf("Keep(%q) expected a parse error", value)
			continue
		}
		if !errors.Is(err, ErrParse) {
			t.Errorf("Keep(%q) error %v does not match ErrParse", value, err)
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("Keep(%q) error is not a *ParseError: %v", value, err)
		}
		if perr.Line != 9 || perr.Column != 4 || perr.Value != value {
			t.Errorf("Unexpected ParseError fields: %+v", perr)
		}
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) {
			t.Errorf("Expected the strconv error to be preserved, got %v", err)
		}
	}
}

func TestCommentFilterShortRow(t *testing.T) {
	cf := NewCommentFilter(4, 0)
	_, err := cf.Keep(row(3, "1", "t"))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("Expected ErrParse for a short row, got %v", err)
	}
}

func TestCommentFilterThreshold(t *testing.T) {
	cf := NewCommentFilter(0, 10)
	for value, want := range map[string]bool{"9": false, "10": false, "11": true} {
		ok, err := cf.Keep(row(2, value))
		if err != nil {
			t.Fatal(err)
		}
		if ok != want {
			t.Errorf("threshold 10: Keep(%q) = %v, expected %v", value, ok, want)
		}
	}
}

func TestCommentFilterApply(t *testing.T) {
	// Header: id,title,url,author,num_comments
	rows := []posts.Row{
		row(2, "1", "A", "u1", "a1", "0"),
		row(3, "2", "B", "u2", "a2", "5"),
		row(4, "3", "C", "u3", "a3", "3"),
	}

	kept, err := NewCommentFilter(4, 0).Apply(rows)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("Expected 2 rows kept, got %d", len(kept))
	}
	if kept[0].Fields[0] != "2" || kept[1].Fields[0] != "3" {
		t.Errorf("Expected rows 2 and 3 in input order, got %v and %v", kept[0].Fields, kept[1].Fields)
	}
	if rows[0].Fields[4] != "0" {
		t.Error("Input rows must not be modified")
	}
}

func TestCommentFilterApplyFailsFast(t *testing.T) {
	rows := []posts.Row{
		row(2, "1", "A", "u1", "a1", "4"),
		row(3, "2", "B", "u2", "a2", "n/a"),
		row(4, "3", "C", "u3", "a3", "3"),
	}

	kept, err := NewCommentFilter(4, 0).Apply(rows)
	if err == nil {
		t.Fatal("Expected Apply to fail on a non-integer comment count")
	}
	if kept != nil {
		t.Errorf("Expected no partial result, got %d rows", len(kept))
	}
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Line != 3 {
		t.Errorf("Expected ParseError on line 3, got %v", err)
	}
}

func TestCommentFilterApplyEmpty(t *testing.T) {
	kept, err := NewCommentFilter(4, 0).Apply(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 0 {
		t.Errorf("Expected no rows, got %d", len(kept))
	}
}
