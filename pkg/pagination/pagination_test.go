package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -4: DefaultLimit, 10: 10, MaxLimit + 1: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	offset, err := ParseCursor(EncodeCursor(40))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if offset != 40 {
		t.Fatalf("expected 40, got %d", offset)
	}
	if offset, err := ParseCursor(""); err != nil || offset != 0 {
		t.Fatalf("expected first page, got %d %v", offset, err)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"!!!", EncodeCursor(-1), "b2Zmc2V0Ong"} {
		if _, err := ParseCursor(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestSliceWalksPages(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	first, err := Slice(items, Params{Limit: 2})
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if len(first.Items) != 2 || first.Items[0] != 1 || first.NextCursor == "" || first.Total != 5 {
		t.Fatalf("unexpected first page %+v", first)
	}

	second, err := Slice(items, Params{Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if second.Items[0] != 3 {
		t.Fatalf("unexpected second page %+v", second)
	}

	last, err := Slice(items, Params{Limit: 2, Cursor: second.NextCursor})
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if len(last.Items) != 1 || last.Items[0] != 5 || last.NextCursor != "" {
		t.Fatalf("unexpected last page %+v", last)
	}

	past, err := Slice(items, Params{Cursor: EncodeCursor(99)})
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if len(past.Items) != 0 || past.Items == nil {
		t.Fatalf("expected empty non-nil page, got %+v", past)
	}
}
