package mongodoc

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToD128FromD128RoundTrip(t *testing.T) {
	cases := []string{"0", "100.00", "99.99", "-50.25", "1000000.01"}
	for _, c := range cases {
		d := decimal.RequireFromString(c)
		got := fromD128(toD128(d))
		if !got.Equal(d) {
			t.Errorf("round trip %s: got %s", c, got)
		}
	}
}

func TestNegD128(t *testing.T) {
	d := decimal.RequireFromString("42.50")
	got := fromD128(negD128(toD128(d)))
	want := d.Neg()
	if !got.Equal(want) {
		t.Errorf("negD128(%s) = %s, want %s", d, got, want)
	}
}

func TestNegD128Zero(t *testing.T) {
	d := decimal.Zero
	got := fromD128(negD128(toD128(d)))
	if !got.IsZero() {
		t.Errorf("negD128(0) = %s, want 0", got)
	}
}
