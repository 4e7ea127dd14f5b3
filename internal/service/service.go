// Package service wires extraction, parsing, validation, caching and
// persistence into the single entry point the API and CLI call.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/underwrite/internal/cache"
	"github.com/kalambet/underwrite/internal/contract"
	"github.com/kalambet/underwrite/internal/extract"
	"github.com/kalambet/underwrite/internal/validate"
)

// Request identifies the contact and carries the contract document,
// either inline or by URL.
type Request struct {
	ContactID   string
	Document    []byte
	DocumentURL string
}

// RunStore persists completed validation runs.
type RunStore interface {
	SaveRun(run *validate.Run) error
	GetRun(id string) (*validate.Run, error)
	ListRuns(contactID string, limit int) ([]*validate.Run, error)
}

// Validator orchestrates a full validation run. Results are cached by
// content fingerprint and persisted best-effort.
type Validator struct {
	pipeline *extract.Pipeline
	parser   *contract.Extractor
	engine   *validate.Engine
	cache    *cache.Cache
	contacts ContactSource
	download *Downloader
	store    RunStore
	logger   *slog.Logger
}

// NewValidator assembles the orchestrator. store may be nil to disable
// persistence.
func NewValidator(pipeline *extract.Pipeline, parser *contract.Extractor, engine *validate.Engine, resultCache *cache.Cache, contacts ContactSource, store RunStore) *Validator {
	return &Validator{
		pipeline: pipeline,
		parser:   parser,
		engine:   engine,
		cache:    resultCache,
		contacts: contacts,
		download: NewDownloader(),
		store:    store,
		logger:   slog.Default(),
	}
}

// Validate runs the pipeline for one contact and document. Identical
// (contact, document, check-set) requests within the cache TTL return
// the stored run with Cached set.
func (v *Validator) Validate(ctx context.Context, req Request) (*validate.Run, error) {
	if req.ContactID == "" {
		return nil, fmt.Errorf("contact id is required")
	}

	doc := req.Document
	if len(doc) == 0 && req.DocumentURL != "" {
		fetched, err := v.download.Fetch(ctx, req.DocumentURL)
		if err != nil {
			return nil, err
		}
		doc = fetched
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("document bytes or url required")
	}

	fp := Fingerprint(req.ContactID, doc, v.engine.CheckIDs())
	run, cached, err := v.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (*validate.Run, error) {
		return v.compute(ctx, req.ContactID, doc)
	})
	if err != nil {
		return nil, err
	}
	if cached {
		// Copy so the cached entry itself stays unmarked.
		hit := *run
		hit.Cached = true
		return &hit, nil
	}
	return run, nil
}

func (v *Validator) compute(ctx context.Context, contactID string, doc []byte) (*validate.Run, error) {
	started := time.Now().UTC()

	extracted, err := v.pipeline.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extracting document text: %w", err)
	}

	record, err := v.contacts.FetchContact(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("loading contact record: %w", err)
	}

	data := v.parser.Extract(ctx, extracted.Text)

	results := v.engine.Run(ctx, &validate.Input{
		Contact:  record,
		Contract: data,
		Now:      started,
	})

	run := &validate.Run{
		ID:         uuid.New().String(),
		ContactID:  contactID,
		Overall:    validate.Aggregate(results),
		Results:    results,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}

	if v.store != nil {
		if err := v.store.SaveRun(run); err != nil {
			v.logger.Warn("failed to persist validation run", "run_id", run.ID, "error", err)
		}
	}

	v.logger.Info("validation run complete",
		"run_id", run.ID,
		"contact_id", contactID,
		"overall", run.Overall,
		"extraction_method", extracted.Method)

	return run, nil
}

// GetRun loads a persisted run by id.
func (v *Validator) GetRun(id string) (*validate.Run, error) {
	if v.store == nil {
		return nil, fmt.Errorf("run persistence is disabled")
	}
	return v.store.GetRun(id)
}

// ListRuns lists persisted runs, optionally filtered by contact.
func (v *Validator) ListRuns(contactID string, limit int) ([]*validate.Run, error) {
	if v.store == nil {
		return nil, fmt.Errorf("run persistence is disabled")
	}
	return v.store.ListRuns(contactID, limit)
}
