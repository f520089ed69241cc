package ingest

import (
	"testing"
)

func Test_Flatten_ColumnOrderPreserved(t *testing.T) {
	t.Parallel()

	header := []string{"name", "role", "years"}
	record := []string{"Jane", "stylist", "4"}

	got, err := Flatten(header, record)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	want := "name: Jane | role: stylist | years: 4"
	if got != want {
		t.Errorf("flatten:\n want %q\n got  %q", want, got)
	}
}

func Test_Flatten_Deterministic(t *testing.T) {
	t.Parallel()

	header := []string{"service", "price"}
	record := []string{"cut & blow dry", "45.00"}

	a, err := Flatten(header, record)
	if err != nil {
		t.Fatalf("first flatten: %v", err)
	}
	b, err := Flatten(header, record)
	if err != nil {
		t.Fatalf("second flatten: %v", err)
	}
	if a != b {
		t.Errorf("flattening is not deterministic: %q vs %q", a, b)
	}
}

func Test_Flatten_EmptyValuesKept(t *testing.T) {
	t.Parallel()

	got, err := Flatten([]string{"q", "a"}, []string{"Do you take walk-ins?", ""})
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	want := "q: Do you take walk-ins? | a: "
	if got != want {
		t.Errorf("empty values must not be filtered:\n want %q\n got  %q", want, got)
	}
}

func Test_Flatten_FieldCountMismatch(t *testing.T) {
	t.Parallel()

	if _, err := Flatten([]string{"a", "b"}, []string{"only one"}); err == nil {
		t.Errorf("want error for record shorter than header")
	}
	if _, err := Flatten([]string{"a"}, []string{"x", "y"}); err == nil {
		t.Errorf("want error for record longer than header")
	}
}

func Test_ItemID_Scheme(t *testing.T) {
	t.Parallel()

	if got := ItemID("staffs", 0); got != "staffs_0" {
		t.Errorf("want staffs_0, got %q", got)
	}
	if got := ItemID("faq", 12); got != "faq_12" {
		t.Errorf("want faq_12, got %q", got)
	}
}

func Test_ItemID_UniquePerRun(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, dataset := range []string{"services", "staffs", "hours"} {
		for i := range 50 {
			id := ItemID(dataset, i)
			if seen[id] {
				t.Fatalf("duplicate ID %q", id)
			}
			seen[id] = true
		}
	}
}
