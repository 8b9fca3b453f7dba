package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfreed/repodex/internal/source"
	"github.com/mfreed/repodex/internal/vecindex"
	"github.com/mfreed/repodex/pkg/types"
)

// DefaultBatchSize is the number of records embedded per API call.
const DefaultBatchSize = 10

// Stage numbers reported to the observer.
const (
	StageCollect = 1
	StageEnrich  = 2
	StageEmbed   = 3
)

// Catalog is the store surface the orchestrator needs.
type Catalog interface {
	source.Catalog
	NeedingEmbedding(ctx context.Context) ([]*types.Repository, error)
	UpdateReadme(ctx context.Context, fullName, readme string) error
	MarkEmbeddedBatch(ctx context.Context, fullNames []string, at time.Time) error
	SetLastSyncTime(ctx context.Context, t time.Time) error
	All(ctx context.Context) ([]*types.Repository, error)
}

// VectorIndex is the index surface the orchestrator needs.
type VectorIndex interface {
	UpsertBatch(ctx context.Context, entries []*vecindex.Entry) error
}

// Embedder generates embedding vectors in input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Observer receives stage transitions and step-level progress.
type Observer interface {
	OnStage(stage int, name string)
	OnProgress(msg string, current, total int)
}

// Result is the outcome of one sync cycle.
type Result struct {
	// Repos is the full catalog after the cycle.
	Repos []*types.Repository
	// Total is the number of records seen across all sources.
	Total int
	// Changed is the number of records whose change signal fired.
	Changed int
}

// Syncer orchestrates a sync cycle over a set of source adapters.
type Syncer struct {
	catalog   Catalog
	index     VectorIndex
	embedder  Embedder
	adapters  []source.Adapter
	observer  Observer
	logger    *slog.Logger
	batchSize int
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithObserver attaches a progress observer.
func WithObserver(obs Observer) Option {
	return func(s *Syncer) { s.observer = obs }
}

// WithBatchSize overrides the embedding batch size.
func WithBatchSize(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Syncer.
func New(cat Catalog, index VectorIndex, emb Embedder, adapters []source.Adapter, opts ...Option) *Syncer {
	s := &Syncer{
		catalog:   cat,
		index:     index,
		embedder:  emb,
		adapters:  adapters,
		logger:    slog.Default(),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Syncer) stage(n int, name string) {
	s.logger.Info("sync stage", "stage", n, "name", name)
	if s.observer != nil {
		s.observer.OnStage(n, name)
	}
}

func (s *Syncer) progress(msg string, current, total int) {
	if s.observer != nil {
		s.observer.OnProgress(msg, current, total)
	}
}

// Sync runs one full cycle. Cancellation is honored between sources
// during collection; enrichment and embedding of the already-taken
// snapshot run to completion. The last-sync timestamp is recorded on
// every path out.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	result := &Result{}

	s.stage(StageCollect, "Collecting sources")
	for _, adapter := range s.adapters {
		if ctx.Err() != nil {
			break
		}
		total, changed, err := adapter.Sync(ctx, s.catalog, s.progress)
		if err != nil {
			s.logger.Warn("source sync failed", "source", adapter.Source(), "error", err)
			s.progress(fmt.Sprintf("Sync of %s failed: %v", adapter.Source(), err), 0, 0)
			continue
		}
		result.Total += total
		result.Changed += changed
	}

	// Cancellation is only polled during collection; the rest of the
	// cycle runs to completion on the snapshot taken here.
	finishCtx := context.WithoutCancel(ctx)

	pending, err := s.catalog.NeedingEmbedding(finishCtx)
	if err != nil {
		s.logger.Warn("reading pending records failed", "error", err)
		pending = nil
	}

	s.stage(StageEnrich, "Fetching readmes")
	s.enrich(finishCtx, pending)

	s.stage(StageEmbed, "Embedding")
	s.embed(finishCtx, pending)

	if err := s.catalog.SetLastSyncTime(finishCtx, time.Now()); err != nil {
		s.logger.Warn("recording sync time failed", "error", err)
	}

	repos, err := s.catalog.All(finishCtx)
	if err != nil {
		return result, fmt.Errorf("read catalog: %w", err)
	}
	result.Repos = repos
	return result, nil
}

// enrich fetches readme content for the pending records, grouped by
// owning adapter, and persists each fetched readme immediately.
func (s *Syncer) enrich(ctx context.Context, pending []*types.Repository) {
	bySource := make(map[types.Source][]*types.Repository)
	for _, rec := range pending {
		bySource[rec.Source] = append(bySource[rec.Source], rec)
	}

	for _, adapter := range s.adapters {
		group := bySource[adapter.Source()]
		if len(group) == 0 {
			continue
		}

		readmes := adapter.FetchReadmes(ctx, group, s.progress)
		for _, rec := range group {
			readme, ok := readmes[rec.FullName]
			if !ok {
				continue
			}
			if err := s.catalog.UpdateReadme(ctx, rec.FullName, readme); err != nil {
				s.logger.Warn("storing readme failed", "repo", rec.FullName, "error", err)
				continue
			}
			// Keep the snapshot in step so embedding sees fresh text.
			rec.Readme = readme
		}
	}
}

// embed runs the pending records through the embedder in batches. A
// failing batch is skipped; its records stay flagged for the next
// cycle.
func (s *Syncer) embed(ctx context.Context, pending []*types.Repository) {
	total := len(pending)
	s.progress(fmt.Sprintf("Embedding %d repositories...", total), 0, total)

	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		names := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = rec.EmbeddingText()
			names[i] = rec.FullName
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil || len(vectors) != len(batch) {
			s.logger.Warn("embedding batch failed", "from", start, "error", err)
			s.progress(fmt.Sprintf("Embedding batch failed, will retry next sync: %v", err), end, total)
			continue
		}

		entries := make([]*vecindex.Entry, len(batch))
		for i, rec := range batch {
			entries[i] = &vecindex.Entry{
				FullName: rec.FullName,
				Vector:   vectors[i],
				Document: texts[i],
				Metadata: rec.Metadata(),
			}
		}
		if err := s.index.UpsertBatch(ctx, entries); err != nil {
			s.logger.Warn("vector upsert failed", "from", start, "error", err)
			continue
		}
		if err := s.catalog.MarkEmbeddedBatch(ctx, names, time.Now()); err != nil {
			s.logger.Warn("marking batch embedded failed", "from", start, "error", err)
			continue
		}

		s.progress(fmt.Sprintf("Embedded %d of %d repositories", end, total), end, total)
	}
}
