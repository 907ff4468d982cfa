// Package collector walks a paginated GraphQL query page by page, appending
// every record to an in-memory dataset and checkpointing it periodically.
package collector

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/curator/internal/core/cursor"
	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/indexing/metrics"
	"github.com/vietddude/curator/internal/infra/rpc/routing"
	"github.com/vietddude/curator/internal/infra/storage"
)

//go:embed queries/*.graphql
var queries embed.FS

// ErrFetchAborted is returned when a page keeps exhausting its retries
// beyond the configured budget.
var ErrFetchAborted = errors.New("fetch aborted")

// Query returns the GraphQL document for a record type.
func Query(recordType domain.RecordType) (string, error) {
	b, err := queries.ReadFile("queries/" + string(recordType) + ".graphql")
	if err != nil {
		return "", fmt.Errorf("no query for record type %q: %w", recordType, err)
	}
	return string(b), nil
}

// Fetcher performs page requests. *routing.Executor implements it.
type Fetcher interface {
	// Execute fetches a page with retry.
	Execute(ctx context.Context, req domain.PageRequest) (*domain.Page, error)
	// Seed fetches a page with a single attempt.
	Seed(ctx context.Context, req domain.PageRequest) (*domain.Page, error)
}

// Config controls a collection run.
type Config struct {
	PerPage            int
	StartPage          int
	CheckpointInterval int
	PageDelay          time.Duration
	MaxPageRetries     int // consecutive exhaustions tolerated per page; negative = unbounded
	Resume             bool
}

// Collector drives the page loop for one record type at a time.
type Collector struct {
	cfg         Config
	fetcher     Fetcher
	checkpoints storage.CheckpointRepository
	cursors     cursor.Manager
	sleep       routing.Sleeper
	log         *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithSleeper replaces the wall-clock sleeper used for the page delay.
func WithSleeper(s routing.Sleeper) Option {
	return func(c *Collector) { c.sleep = s }
}

// WithLogger sets the collector logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) { c.log = l }
}

// New creates a collector.
func New(
	cfg Config,
	fetcher Fetcher,
	checkpoints storage.CheckpointRepository,
	cursors cursor.Manager,
	opts ...Option,
) *Collector {
	if cfg.StartPage <= 0 {
		cfg.StartPage = 1
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 1000
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 100
	}
	c := &Collector{
		cfg:         cfg,
		fetcher:     fetcher,
		checkpoints: checkpoints,
		cursors:     cursors,
		sleep:       routing.SleepContext,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run collects each record type in order. With Resume set, a record type
// whose cursor is not done continues after its last checkpoint.
func (c *Collector) Run(ctx context.Context, recordTypes ...domain.RecordType) error {
	for _, rt := range recordTypes {
		var (
			records []domain.Record
			err     error
		)
		if c.cfg.Resume {
			records, err = c.Resume(ctx, rt)
		} else {
			records, err = c.Collect(ctx, rt, c.cfg.StartPage)
		}
		if err != nil {
			return fmt.Errorf("collect %s: %w", rt, err)
		}
		c.log.Info("Collection finished", "record_type", rt, "records", len(records))
	}
	return nil
}

// Collect runs a fresh collection starting at startPage. The first page is
// fetched once without retry; a failure there ends the run.
func (c *Collector) Collect(ctx context.Context, recordType domain.RecordType, startPage int) ([]domain.Record, error) {
	query, err := Query(recordType)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if _, err := c.cursors.Initialize(ctx, recordType, startPage, runID); err != nil {
		return nil, err
	}
	if err := c.cursors.SetState(ctx, recordType, cursor.StateFetching, "collection started"); err != nil {
		return nil, err
	}
	c.log.Info("Starting collection", "record_type", recordType, "start_page", startPage, "run_id", runID)

	req := domain.PageRequest{
		RecordType: recordType,
		Page:       startPage,
		PerPage:    c.cfg.PerPage,
		Query:      query,
	}

	seed, err := c.fetcher.Seed(ctx, req)
	if err != nil {
		_ = c.cursors.SetState(context.WithoutCancel(ctx), recordType, cursor.StateAborted, "seed page failed")
		return nil, err
	}

	records := append([]domain.Record(nil), seed.Records...)
	if err := c.appended(ctx, recordType, req.Page, len(seed.Records)); err != nil {
		return records, err
	}

	return c.loop(ctx, req, records, seed.HasNextPage)
}

// Resume continues the last run for a record type from its checkpoint.
// It falls back to a fresh collection when there is nothing to resume.
func (c *Collector) Resume(ctx context.Context, recordType domain.RecordType) ([]domain.Record, error) {
	cur, err := c.cursors.Get(ctx, recordType)
	if errors.Is(err, storage.ErrCursorNotFound) {
		return c.Collect(ctx, recordType, c.cfg.StartPage)
	}
	if err != nil {
		return nil, err
	}
	if cur.State == cursor.StateDone || cur.CheckpointPage < 1 {
		return c.Collect(ctx, recordType, c.cfg.StartPage)
	}

	records, err := c.checkpoints.Load(ctx, recordType)
	if errors.Is(err, storage.ErrCheckpointNotFound) {
		c.log.Warn("Cursor has no checkpoint, starting over",
			"record_type", recordType, "checkpoint_page", cur.CheckpointPage)
		return c.Collect(ctx, recordType, c.cfg.StartPage)
	}
	if err != nil {
		return nil, err
	}

	query, err := Query(recordType)
	if err != nil {
		return nil, err
	}

	// Pages after the checkpoint were never made durable; fetch them again.
	if err := c.cursors.Reset(ctx, recordType, cur.CheckpointPage); err != nil {
		return nil, err
	}
	if err := c.cursors.Checkpointed(ctx, recordType, cur.CheckpointPage, len(records)); err != nil {
		return nil, err
	}
	if err := c.cursors.SetState(ctx, recordType, cursor.StateFetching, "resumed from checkpoint"); err != nil {
		return nil, err
	}
	c.log.Info("Resuming collection",
		"record_type", recordType,
		"next_page", cur.CheckpointPage+1,
		"records", len(records),
		"run_id", cur.RunID,
	)

	req := domain.PageRequest{
		RecordType: recordType,
		Page:       cur.CheckpointPage,
		PerPage:    c.cfg.PerPage,
		Query:      query,
	}
	return c.loop(ctx, req, records, true)
}

// loop fetches pages after req until the upstream reports no next page.
func (c *Collector) loop(
	ctx context.Context,
	req domain.PageRequest,
	records []domain.Record,
	hasNext bool,
) ([]domain.Record, error) {
	recordType := req.RecordType
	exhausted := 0
	retrying := false

	for hasNext {
		if ctx.Err() != nil {
			return c.pause(ctx, req, records)
		}

		next := req.Next()
		page, err := c.fetcher.Execute(ctx, next)

		switch {
		case err == nil:
			records = append(records, page.Records...)
			hasNext = page.HasNextPage
			req = next
			exhausted = 0

			if retrying {
				retrying = false
				if err := c.cursors.SetState(ctx, recordType, cursor.StateFetching, "page recovered"); err != nil {
					return records, err
				}
			}
			if err := c.appended(ctx, recordType, req.Page, len(page.Records)); err != nil {
				return records, err
			}
			if req.Page%c.cfg.CheckpointInterval == 0 {
				c.log.Info("Fetched records so far", "record_type", recordType, "page", req.Page, "records", len(records))
				if err := c.checkpoint(ctx, req, records); err != nil {
					return records, err
				}
			}

		case errors.Is(err, routing.ErrExhaustedRetries):
			exhausted++
			c.log.Error("Error fetching page",
				"record_type", recordType,
				"page", next.Page,
				"consecutive", exhausted,
				"error", err,
			)
			if err := c.checkpoint(ctx, req, records); err != nil {
				return records, err
			}
			if !retrying {
				retrying = true
				if err := c.cursors.SetState(ctx, recordType, cursor.StateRetrying, err.Error()); err != nil {
					return records, err
				}
			}
			if c.cfg.MaxPageRetries >= 0 && exhausted > c.cfg.MaxPageRetries {
				_ = c.cursors.SetMetadata(ctx, recordType, "last_error", err.Error())
				if serr := c.cursors.SetState(ctx, recordType, cursor.StateAborted, "page retry budget spent"); serr != nil {
					return records, serr
				}
				return records, fmt.Errorf("%w: page %d exhausted retries %d times: %w", ErrFetchAborted, next.Page, exhausted, err)
			}

		case ctx.Err() != nil:
			return c.pause(ctx, req, records)

		default:
			return records, fmt.Errorf("fetch page %d: %w", next.Page, err)
		}

		if err := c.sleep(ctx, c.cfg.PageDelay); err != nil {
			return c.pause(ctx, req, records)
		}
	}

	if err := c.checkpoint(ctx, req, records); err != nil {
		return records, err
	}
	if err := c.cursors.SetState(ctx, recordType, cursor.StateDone, "no further pages"); err != nil {
		return records, err
	}
	c.log.Info("Saved final checkpoint", "record_type", recordType, "page", req.Page, "records", len(records))
	return records, nil
}

// pause persists progress after a stop signal and reports the cancellation.
func (c *Collector) pause(ctx context.Context, req domain.PageRequest, records []domain.Record) ([]domain.Record, error) {
	cause := ctx.Err()
	bg := context.WithoutCancel(ctx)

	if err := c.checkpoint(bg, req, records); err != nil {
		return records, errors.Join(cause, err)
	}
	if err := c.cursors.SetState(bg, req.RecordType, cursor.StatePaused, "stop signal"); err != nil {
		return records, errors.Join(cause, err)
	}
	c.log.Info("Collection paused", "record_type", req.RecordType, "page", req.Page, "records", len(records))
	return records, cause
}

// appended advances the cursor after a page joined the dataset.
func (c *Collector) appended(ctx context.Context, recordType domain.RecordType, page, n int) error {
	if err := c.cursors.Advance(ctx, recordType, page); err != nil {
		return err
	}
	label := string(recordType)
	metrics.PagesFetched.WithLabelValues(label).Inc()
	metrics.RecordsCollected.WithLabelValues(label).Add(float64(n))
	metrics.CollectorPage.WithLabelValues(label).Set(float64(page))
	return nil
}

// checkpoint overwrites the stored snapshot with the full dataset, which
// covers every page up to and including req.Page.
func (c *Collector) checkpoint(ctx context.Context, req domain.PageRequest, records []domain.Record) error {
	start := time.Now()
	if err := c.checkpoints.Write(ctx, req.RecordType, records); err != nil {
		return fmt.Errorf("write checkpoint at page %d: %w", req.Page, err)
	}
	label := string(req.RecordType)
	metrics.CheckpointsWritten.WithLabelValues(label).Inc()
	metrics.CheckpointDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	return c.cursors.Checkpointed(ctx, req.RecordType, req.Page, len(records))
}
