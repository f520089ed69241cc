package manifest

import (
	"context"
	"errors"
	"testing"
)

// openTestStore opens an in-memory manifest Store for use in tests.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Manifest_SchemaRoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	want := CollectionSchema{
		Collection:     "salon_kb",
		EmbeddingModel: "nomic-embed-text",
		Dimensions:     768,
		Metric:         "cosine",
	}
	if err := s.SetSchema(ctx, want); err != nil {
		t.Fatalf("set schema: %v", err)
	}

	got, err := s.Schema(ctx, "salon_kb")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if got.EmbeddingModel != want.EmbeddingModel || got.Dimensions != want.Dimensions || got.Metric != want.Metric {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func Test_Manifest_SchemaMissing(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, err := s.Schema(context.Background(), "never_ingested")
	if !errors.Is(err, ErrNoSchema) {
		t.Errorf("want ErrNoSchema, got %v", err)
	}
}

func Test_Manifest_SetSchemaOverwrites(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	base := CollectionSchema{Collection: "kb", EmbeddingModel: "m1", Dimensions: 768, Metric: "cosine"}
	if err := s.SetSchema(ctx, base); err != nil {
		t.Fatalf("set schema: %v", err)
	}
	base.EmbeddingModel = "m2"
	base.Dimensions = 1536
	if err := s.SetSchema(ctx, base); err != nil {
		t.Fatalf("set schema again: %v", err)
	}

	got, err := s.Schema(ctx, "kb")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if got.EmbeddingModel != "m2" || got.Dimensions != 1536 {
		t.Errorf("second write must win: got %+v", got)
	}
}

func Test_Manifest_ValidateMatch(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	cs := CollectionSchema{Collection: "kb", EmbeddingModel: "nomic-embed-text", Dimensions: 768, Metric: "cosine"}
	if err := s.SetSchema(ctx, cs); err != nil {
		t.Fatalf("set schema: %v", err)
	}
	if err := s.Validate(ctx, cs); err != nil {
		t.Errorf("matching config must validate: %v", err)
	}
}

func Test_Manifest_ValidateMismatches(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetSchema(ctx, CollectionSchema{
		Collection: "kb", EmbeddingModel: "nomic-embed-text", Dimensions: 768, Metric: "cosine",
	}); err != nil {
		t.Fatalf("set schema: %v", err)
	}

	cases := []struct {
		name string
		want CollectionSchema
	}{
		{"model", CollectionSchema{Collection: "kb", EmbeddingModel: "text-embedding-3-small", Dimensions: 768, Metric: "cosine"}},
		{"dimensions", CollectionSchema{Collection: "kb", EmbeddingModel: "nomic-embed-text", Dimensions: 1536, Metric: "cosine"}},
		{"metric", CollectionSchema{Collection: "kb", EmbeddingModel: "nomic-embed-text", Dimensions: 768, Metric: "l2"}},
	}
	for _, tc := range cases {
		if err := s.Validate(ctx, tc.want); err == nil {
			t.Errorf("%s mismatch must fail validation", tc.name)
		}
	}
}

func Test_Manifest_RunsJournalled(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.RecordRun(ctx, "staffs", "staffs.csv", 12, "ok"); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := s.RecordRun(ctx, "policies", "policies.csv", 0, "skipped"); err != nil {
		t.Fatalf("record run: %v", err)
	}

	runs, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("want 2 runs, got %d", len(runs))
	}
	for _, r := range runs {
		if r.Dataset == "staffs" && (r.Rows != 12 || r.Status != "ok") {
			t.Errorf("staffs run: got %+v", r)
		}
		if r.Dataset == "policies" && r.Status != "skipped" {
			t.Errorf("policies run: got %+v", r)
		}
	}
}

func Test_Manifest_InvalidStatusRejected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	if err := s.RecordRun(context.Background(), "x", "x.csv", 1, "exploded"); err == nil {
		t.Errorf("want CHECK constraint violation for unknown status")
	}
}
