package engine

import "testing"

func TestAccountID_OwnerOfRoundTrip(t *testing.T) {
	for _, n := range All {
		for _, slot := range []int{SlotMin, 1, 42, 795, SlotMax} {
			id, err := AccountID(n, slot)
			if err != nil {
				t.Fatalf("AccountID(%s, %d): %v", n, slot, err)
			}
			owner, err := OwnerOf(id)
			if err != nil {
				t.Fatalf("OwnerOf(%d): %v", id, err)
			}
			if owner != n {
				t.Fatalf("OwnerOf(AccountID(%s, %d)) = %s, want %s", n, slot, owner, n)
			}
		}
	}
}

func TestAccountID_EncodesLeadingDigit(t *testing.T) {
	cases := []struct {
		name Name
		slot int
		want int64
	}{
		{Doc, 1, 100001},
		{SQLA, 1, 200001},
		{SQLB, 1, 300001},
		{SQLC, 1, 400001},
		{SQLA, 795, 200795},
	}
	for _, c := range cases {
		got, err := AccountID(c.name, c.slot)
		if err != nil {
			t.Fatalf("AccountID(%s, %d): %v", c.name, c.slot, err)
		}
		if got != c.want {
			t.Errorf("AccountID(%s, %d) = %d, want %d", c.name, c.slot, got, c.want)
		}
	}
}

func TestAccountID_RejectsUnknownEngine(t *testing.T) {
	if _, err := AccountID(Name("sql-z"), 1); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestOwnerOf_RejectsUnrecognizedCode(t *testing.T) {
	if _, err := OwnerOf(999999); err == nil {
		t.Fatal("expected error for unrecognized engine code")
	}
}

func TestValid(t *testing.T) {
	for _, n := range All {
		if !n.Valid() {
			t.Errorf("%s.Valid() = false, want true", n)
		}
	}
	if Name("sql-z").Valid() {
		t.Error("sql-z.Valid() = true, want false")
	}
}

func TestFirstChar(t *testing.T) {
	if got := SQLA.FirstChar(); got != "s" {
		t.Errorf("SQLA.FirstChar() = %q, want %q", got, "s")
	}
	if got := Doc.FirstChar(); got != "d" {
		t.Errorf("Doc.FirstChar() = %q, want %q", got, "d")
	}
}
