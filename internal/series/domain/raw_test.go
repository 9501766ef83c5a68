package series

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestReaderMissingColumn(t *testing.T) {
	reader := Reader{Kind: KindDemand}
	_, err := reader.Int(RawRow{"startTime": "2024-08-18T23:00:00Z"}, 3, ColDemand)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %T", err)
	}
	if schemaErr.Row != 3 || schemaErr.Column != ColDemand || schemaErr.Kind != KindDemand {
		t.Fatalf("unexpected schema error: %+v", schemaErr)
	}
}

func TestReaderInt(t *testing.T) {
	reader := Reader{Kind: KindGeneration}
	cases := []struct {
		value any
		want  int64
		ok    bool
	}{
		{value: int64(42), want: 42, ok: true},
		{value: int32(-7), want: -7, ok: true},
		{value: float64(120), want: 120, ok: true},
		{value: "35", want: 35, ok: true},
		{value: "35.0", want: 35, ok: true},
		{value: float64(1.5), ok: false},
		{value: "n/a", ok: false},
		{value: true, ok: false},
	}
	for _, tc := range cases {
		got, err := reader.Int(RawRow{ColGeneration: tc.value}, 0, ColGeneration)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("int %v: got=%d err=%v want=%d", tc.value, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrSchemaMismatch) {
			t.Fatalf("int %v: expected schema mismatch, got %v", tc.value, err)
		}
	}
}

func TestReaderDecimal(t *testing.T) {
	reader := Reader{Kind: KindPrice}
	got, err := reader.Decimal(RawRow{ColSystemSellPrice: 85.25}, 0, ColSystemSellPrice)
	if err != nil {
		t.Fatalf("decimal: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("85.25")) {
		t.Fatalf("expected 85.25, got %s", got)
	}
	if _, err := reader.Decimal(RawRow{ColSystemSellPrice: "abc"}, 0, ColSystemSellPrice); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestRawSeriesCloneIsIndependent(t *testing.T) {
	original := RawSeries{Kind: KindDemand, Rows: []RawRow{{ColDemand: int64(1)}}}
	clone := original.Clone()
	clone.Rows[0][ColDemand] = int64(2)
	if original.Rows[0][ColDemand] != int64(1) {
		t.Fatalf("clone shares row maps with original")
	}
}

func TestKeySetDifference(t *testing.T) {
	a := NewKeySet("A", "B", "C")
	b := NewKeySet("A")
	diff := a.Difference(b)
	if diff.Len() != 2 || !diff.Has("B") || !diff.Has("C") {
		t.Fatalf("unexpected difference: %v", diff)
	}
	if !b.SubsetOf(a) || a.SubsetOf(b) {
		t.Fatalf("unexpected subset result")
	}
}

func TestParseKind(t *testing.T) {
	if kind, ok := ParseKind("cost"); !ok || kind != KindPrice {
		t.Fatalf("expected cost to resolve to price, got %s", kind)
	}
	if KindPrice.Relation() != "cost" {
		t.Fatalf("expected price relation cost, got %s", KindPrice.Relation())
	}
	if _, ok := ParseKind("weather"); ok {
		t.Fatalf("expected weather to be unknown")
	}
}
