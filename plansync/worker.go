package plansync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const recordSavepoint = "plansync_record"

var tracer = otel.Tracer("plansync")

// Engine pulls the planning feed and merges it into the local orders.
type Engine struct {
	api      config.PlanningAPI
	tokens   *TokenManager
	tokenMu  sync.Mutex
	feed     *feedClient
	guard    RunGuard
	archiver Archiver
	now      func() time.Time
	logger   *logrus.Logger
}

type Option func(*engineOptions)

type engineOptions struct {
	httpClient  *http.Client
	guard       RunGuard
	archiver    Archiver
	archiverSet bool
	now         func() time.Time
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *engineOptions) { o.httpClient = c }
}

func WithGuard(g RunGuard) Option {
	return func(o *engineOptions) { o.guard = g }
}

// WithArchiver overrides the bucket archiver; nil disables archiving.
func WithArchiver(a Archiver) Option {
	return func(o *engineOptions) {
		o.archiver = a
		o.archiverSet = true
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

func NewEngine(api config.PlanningAPI, opts ...Option) *Engine {
	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.guard == nil {
		o.guard = NewRedisGuard(nil)
	}
	if !o.archiverSet {
		o.archiver = NewGCSArchiver(config.SyncArchiveBucket())
	}
	if api.FinishedMarker == "" {
		api.FinishedMarker = config.DefaultFinishedMarker
	}

	tokenHTTP, feedHTTP := o.httpClient, o.httpClient
	if tokenHTTP == nil {
		tokenHTTP = &http.Client{Timeout: api.TokenTimeout}
		feedHTTP = &http.Client{Timeout: api.FeedTimeout}
	}
	tokens := NewTokenManager(api, tokenHTTP)
	tokens.now = o.now

	return &Engine{
		api:      api,
		tokens:   tokens,
		feed:     newFeedClient(api.BaseURL, feedHTTP),
		guard:    o.guard,
		archiver: o.archiver,
		now:      o.now,
		logger:   config.GetLogger(),
	}
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// DefaultEngine is the process-wide engine built from the environment.
func DefaultEngine() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = NewEngine(config.GetPlanningAPI())
	})
	return defaultEngine
}

// Run executes one reconciliation and writes exactly one sync log entry for it.
// A run refused by the guard returns ErrSyncInProgress and writes nothing.
func (e *Engine) Run(ctx context.Context, trigger string) (*SyncResult, error) {
	release, err := e.guard.Acquire(ctx)
	if err != nil {
		if !errors.Is(err, ErrSyncInProgress) {
			config.LogError(e.logger, "plansync/worker.go", "Run", "acquire sync guard", trigger, err)
		}
		return nil, err
	}
	defer release()

	runId := uuid.NewString()
	ctx, span := tracer.Start(ctx, "plansync.Run", trace.WithAttributes(
		attribute.String("plansync.run_id", runId),
		attribute.String("plansync.trigger", trigger),
	))
	defer span.End()

	started := e.now().UTC()
	result := &SyncResult{RunId: runId}
	detail := &runDetail{Trigger: trigger}

	runErr := e.run(ctx, runId, started, result, detail)
	if runErr == nil {
		span.SetAttributes(
			attribute.Int("plansync.processed", result.Processed),
			attribute.Int("plansync.created", result.Created),
			attribute.Int("plansync.updated", result.Updated),
			attribute.Int("plansync.errors", result.Errors),
		)
		e.logger.WithFields(logrus.Fields{
			"field":   "plansync.Run",
			"run_id":  runId,
			"trigger": trigger,
			"message": result.Message,
		}).Info("sync run finished")
		return result, nil
	}

	span.RecordError(runErr)
	span.SetStatus(codes.Error, runErr.Error())
	result.Success = false
	result.Created, result.Updated, result.SkippedFinished = 0, 0, 0
	result.Message = runErr.Error()
	e.stampDuration(result, started)

	entry := e.logEntry(runId, started, models.SyncOutcomeError, result, detail)
	if err := models.CreateSyncLogEntry(context.WithoutCancel(ctx), entry); err != nil {
		config.LogError(e.logger, "plansync/worker.go", "Run", "write error sync log", runId, err)
	}
	config.LogError(e.logger, "plansync/worker.go", "Run", "sync run failed", map[string]any{"run_id": runId, "trigger": trigger}, runErr)
	return result, runErr
}

func (e *Engine) run(ctx context.Context, runId string, started time.Time, result *SyncResult, detail *runDetail) error {
	since, err := models.LastSuccessfulSync(ctx, models.SyncTypeOrders)
	if err != nil {
		return &StoreFailure{Err: err}
	}
	detail.Since = since

	body, items, err := e.fetch(ctx, since)
	if err != nil {
		return err
	}
	result.Processed = len(items)

	if e.archiver != nil {
		object, err := e.archiver.Archive(ctx, runId, started, body)
		if err != nil {
			config.LogError(e.logger, "plansync/worker.go", "run", "archive feed body", runId, err)
		} else {
			detail.ArchiveObject = object
		}
	}

	mapped := make([]*models.ExternalOrder, 0, len(items))
	for i, raw := range items {
		rec, err := mapFeedItem(i, raw)
		if err != nil {
			result.Errors++
			result.RecordErrors = append(result.RecordErrors, err.Error())
			continue
		}
		mapped = append(mapped, rec)
	}

	return e.merge(ctx, runId, started, mapped, result, detail)
}

// fetch holds the token lock only for the HTTP calls; no store transaction is open here.
func (e *Engine) fetch(ctx context.Context, since *time.Time) ([]byte, []json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "plansync.FetchOrders")
	defer span.End()

	e.tokenMu.Lock()
	defer e.tokenMu.Unlock()

	token, err := e.tokens.EnsureValid(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	body, items, err := e.feed.fetchOrders(ctx, token, since)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	span.SetAttributes(attribute.Int("plansync.items", len(items)))
	return body, items, nil
}

// merge applies every mapped record and the success log entry in one transaction.
// A failing record is rolled back to its savepoint and counted; the batch goes on.
func (e *Engine) merge(ctx context.Context, runId string, started time.Time, mapped []*models.ExternalOrder, result *SyncResult, detail *runDetail) error {
	ctx, span := tracer.Start(ctx, "plansync.Merge", trace.WithAttributes(attribute.Int("plansync.records", len(mapped))))
	defer span.End()

	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := e.now().UTC()
		for _, rec := range mapped {
			if err := tx.SavePoint(recordSavepoint).Error; err != nil {
				return err
			}
			outcome, err := models.MergeExternalOrder(tx, rec, e.api.FinishedMarker, now)
			if err != nil {
				if rbErr := tx.RollbackTo(recordSavepoint).Error; rbErr != nil {
					return rbErr
				}
				result.Errors++
				result.RecordErrors = append(result.RecordErrors, fmt.Sprintf("record %d: %v", rec.OrderNumber, err))
				continue
			}
			switch outcome {
			case models.MergeCreated:
				result.Created++
			case models.MergeUpdated:
				result.Updated++
			case models.MergeSkippedFinished:
				result.SkippedFinished++
			}
		}

		result.Success = true
		result.Message = summarize(result)
		e.stampDuration(result, started)
		entry := e.logEntry(runId, started, models.SyncOutcomeSuccess, result, detail)
		return tx.Create(entry).Error
	})
	if err != nil {
		span.RecordError(err)
		return &StoreFailure{Err: err}
	}
	return nil
}

func summarize(result *SyncResult) string {
	msg := fmt.Sprintf("%d created, %d updated", result.Created, result.Updated)
	if result.Errors > 0 {
		msg += fmt.Sprintf(", %d errors", result.Errors)
	}
	return msg
}

func (e *Engine) stampDuration(result *SyncResult, started time.Time) {
	result.Duration = e.now().Sub(started)
	result.DurationMs = result.Duration.Milliseconds()
}

func (e *Engine) logEntry(runId string, started time.Time, outcome string, result *SyncResult, detail *runDetail) *models.SyncLogEntry {
	detail.SkippedFinished = result.SkippedFinished
	detail.RecordErrors = result.RecordErrors
	detailJSON, _ := json.Marshal(detail)
	return &models.SyncLogEntry{
		RunId:      runId,
		SyncType:   models.SyncTypeOrders,
		Outcome:    outcome,
		ExecutedAt: started,
		Processed:  result.Processed,
		Created:    result.Created,
		Updated:    result.Updated,
		Errors:     result.Errors,
		DurationMs: result.DurationMs,
		Message:    result.Message,
		Detail:     detailJSON,
	}
}

// TestConnection forces a credential exchange and reports the new expiry.
func (e *Engine) TestConnection(ctx context.Context) (*TestConnectionResponse, error) {
	e.tokenMu.Lock()
	defer e.tokenMu.Unlock()

	if err := e.tokens.Exchange(ctx); err != nil {
		return &TestConnectionResponse{Success: false, Message: err.Error()}, err
	}
	expiry := e.tokens.Expiry().UTC()
	return &TestConnectionResponse{
		Success:     true,
		Message:     "connection to planning API established",
		TokenExpiry: &expiry,
	}, nil
}

// Scheduler triggers a run every Interval until its context ends.
type Scheduler struct {
	Engine   *Engine
	Logger   *logrus.Logger
	Interval time.Duration
}

func NewScheduler(engine *Engine, logger *logrus.Logger, interval time.Duration) *Scheduler {
	return &Scheduler{Engine: engine, Logger: logger, Interval: interval}
}

func (s *Scheduler) Run(ctx context.Context) {
	if s.Interval <= 0 {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Interval):
		}
		if _, err := s.Engine.Run(ctx, "schedule"); err != nil {
			entry := s.Logger.WithFields(logrus.Fields{"field": "plansync.Scheduler"})
			if errors.Is(err, ErrSyncInProgress) {
				entry.Info("previous sync still running; skipping tick")
				continue
			}
			entry.WithError(err).Warn("scheduled sync failed")
		}
	}
}
