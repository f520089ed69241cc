// Package ingest implements the knowledge-base ingestion pipeline.
// It reads delimited tabular files with a header row, flattens each row into
// a text string, embeds the rows in batches, and upserts the results into
// the vector store. The pipeline is invoked by the `kbrag ingest` CLI
// command.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/salonlabs/kbrag/internal/rag"
)

// defaultBatchSize bounds how many rows are embedded and upserted per call.
// Chunking keeps memory flat for large files and makes a partially failed
// run resumable by re-ingesting.
const defaultBatchSize = 64

// Source describes one knowledge-base file to be ingested.
type Source struct {
	// Path is the filesystem path of the delimited tabular file. The first
	// record is treated as the header row.
	Path string

	// Dataset is the logical dataset name recorded as the `source` metadata
	// field and used to form item IDs.
	Dataset string
}

// Recorder receives a notification for every completed source so ingestion
// runs can be journalled. The manifest store implements it; a nil Recorder
// disables journalling.
type Recorder interface {
	// RecordRun journals one source's outcome. status is "ok", "skipped",
	// or "failed".
	RecordRun(ctx context.Context, dataset, path string, rows int, status string) error
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// BatchSize is the maximum number of rows embedded and upserted per
	// batch. Defaults to 64 if zero.
	BatchSize int

	// Logger is the structured logger for progress reporting.
	// Defaults to slog.Default if nil.
	Logger *slog.Logger

	// Recorder journals per-source outcomes. Optional.
	Recorder Recorder
}

// Summary reports the outcome of one pipeline run.
type Summary struct {
	// Rows is the total number of rows ingested across all sources.
	Rows int
	// Ingested is the number of sources fully ingested.
	Ingested int
	// Skipped is the number of sources whose file was missing.
	Skipped int
	// Failed is the number of sources that errored part-way.
	Failed int
}

// Pipeline orchestrates the read → flatten → embed → upsert flow for a set
// of knowledge-base sources.
type Pipeline struct {
	// embedder converts flattened rows into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded rows.
	store rag.VectorStore

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingest: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingest: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
	}, nil
}

// Run ingests all provided sources sequentially.
//
// A missing file is logged as a warning and skipped — ingestion continues
// with the remaining sources. A malformed row or an embedding/storage fault
// is fatal for that source only: the error is collected, sibling sources are
// still attempted, and the joined errors are returned alongside the summary.
func (p *Pipeline) Run(ctx context.Context, sources []Source) (Summary, error) {
	log := p.cfg.Logger

	var summary Summary
	var errs []error

	for _, src := range sources {
		if _, err := os.Stat(src.Path); err != nil {
			log.Warn("ingest: skipped, file not found",
				slog.String("dataset", src.Dataset),
				slog.String("path", src.Path),
			)
			summary.Skipped++
			p.record(ctx, src, 0, "skipped")
			continue
		}

		rows, err := p.ingestFile(ctx, src)
		if err != nil {
			log.Error("ingest: source failed",
				slog.String("dataset", src.Dataset),
				slog.String("path", src.Path),
				slog.Any("error", err),
			)
			summary.Failed++
			p.record(ctx, src, rows, "failed")
			errs = append(errs, fmt.Errorf("ingest: %s (%s): %w", src.Dataset, src.Path, err))
			continue
		}

		log.Info("ingest: source complete",
			slog.String("dataset", src.Dataset),
			slog.Int("rows", rows),
		)
		summary.Rows += rows
		summary.Ingested++
		p.record(ctx, src, rows, "ok")
	}

	log.Info("ingest: run complete",
		slog.Int("rows", summary.Rows),
		slog.Int("ingested", summary.Ingested),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
	)

	return summary, errors.Join(errs...)
}

// ingestFile loads one file, flattens every row, and embeds + upserts the
// rows in batches of cfg.BatchSize. Returns the number of rows ingested.
func (p *Pipeline) ingestFile(ctx context.Context, src Source) (int, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	// The csv reader enforces a uniform field count against the header row,
	// so a ragged record surfaces here as a parse error.
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("read csv: file has no header row")
	}

	header := records[0]
	rows := records[1:]
	p.cfg.Logger.Info("ingest: loaded file",
		slog.String("dataset", src.Dataset),
		slog.String("path", src.Path),
		slog.Int("rows", len(rows)),
	)

	ingested := 0
	for start := 0; start < len(rows); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(rows))

		items := make([]rag.Item, 0, end-start)
		texts := make([]string, 0, end-start)
		for i, record := range rows[start:end] {
			rowIndex := start + i
			text, err := Flatten(header, record)
			if err != nil {
				return ingested, fmt.Errorf("row %d: %w", rowIndex, err)
			}
			texts = append(texts, text)
			items = append(items, rag.Item{
				ID:     ItemID(src.Dataset, rowIndex),
				Text:   text,
				Source: src.Dataset,
				Row:    rowIndex,
			})
		}

		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return ingested, fmt.Errorf("embed rows %d-%d: %w", start, end-1, err)
		}

		if err := p.store.Upsert(ctx, items, embeddings); err != nil {
			return ingested, fmt.Errorf("upsert rows %d-%d: %w", start, end-1, err)
		}

		ingested += len(items)
	}

	return ingested, nil
}

// record journals one source's outcome when a Recorder is configured.
// Journal failures are logged, never fatal — the vector store is the source
// of truth, the manifest is bookkeeping.
func (p *Pipeline) record(ctx context.Context, src Source, rows int, status string) {
	if p.cfg.Recorder == nil {
		return
	}
	if err := p.cfg.Recorder.RecordRun(ctx, src.Dataset, src.Path, rows, status); err != nil {
		p.cfg.Logger.Warn("ingest: manifest record failed",
			slog.String("dataset", src.Dataset),
			slog.Any("error", err),
		)
	}
}
