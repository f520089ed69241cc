package commands

import "testing"

func TestResolveSources_Flags(t *testing.T) {
	t.Parallel()

	sources, err := resolveSources([]string{
		"data/hours.csv",
		"data/faq_export.csv=faq",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Path != "data/hours.csv" || sources[0].Dataset != "hours" {
		t.Errorf("source 0: got %+v", sources[0])
	}
	if sources[1].Path != "data/faq_export.csv" || sources[1].Dataset != "faq" {
		t.Errorf("source 1: got %+v", sources[1])
	}
}

func TestResolveSources_InvalidFlag(t *testing.T) {
	t.Parallel()

	if _, err := resolveSources([]string{"=faq"}); err == nil {
		t.Error("expected error for --source with empty path")
	}
}

func TestDatasetFromPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want string
	}{
		{"data/hours.csv", "hours"},
		{"services.csv", "services"},
		{"/abs/path/staff_bios.csv", "staff_bios"},
		{"noext", "noext"},
	}
	for _, tc := range cases {
		if got := datasetFromPath(tc.path); got != tc.want {
			t.Errorf("datasetFromPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
