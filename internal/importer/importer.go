// Package importer decides, place by place, whether a population figure
// is already on the knowledge base and writes it when it is not.
package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/popimport/internal/model"
)

// KnowledgeBase is the part of the knowledge-base client the importer uses
type KnowledgeBase interface {
	ResolveEntities(ctx context.Context, q model.EntityQuery) ([]model.EntityRef, error)
	Statements(ctx context.Context, ref model.EntityRef, property string) ([]model.Statement, error)
	SubmitStatement(ctx context.Context, ref model.EntityRef, draft model.StatementDraft) (model.SubmitResult, error)
}

// RateGate is consulted before every write
type RateGate interface {
	Wait(ctx context.Context, key string) error
}

// Target is a place together with the query that finds its entity
type Target struct {
	Record model.PlaceRecord
	Query  model.EntityQuery
}

// Outcome is what happened to one (place, entity) pair
type Outcome string

const (
	OutcomeWritten        Outcome = "written"
	OutcomeAlreadyPresent Outcome = "already_present"
	OutcomeNoMatch        Outcome = "no_match"
	OutcomeMissing        Outcome = "missing"
	OutcomeFailed         Outcome = "failed"
	OutcomeDryRun         Outcome = "dry_run"
)

// Result reports an Outcome. EntityID is empty for OutcomeNoMatch and
// for lookup failures.
type Result struct {
	Place    string
	EntityID string
	Outcome  Outcome
	Err      error
}

// Options controls statement construction and submission
type Options struct {
	Method     string       // Determination method item for P459
	Source     Source       // Reference for every written statement
	AccessDate model.WbTime // P813 value
	DryRun     bool         // Decide but never submit
	GateKey    string       // Key passed to the RateGate, normally the API URL
}

// Importer processes targets strictly one after another
type Importer struct {
	kb      KnowledgeBase
	gate    RateGate
	logger  *zap.Logger
	opts    Options
	written map[string]bool
}

// New creates an Importer
func New(kb KnowledgeBase, gate RateGate, logger *zap.Logger, opts Options) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		kb:      kb,
		gate:    gate,
		logger:  logger,
		opts:    opts,
		written: make(map[string]bool),
	}
}

// Run processes every target and tallies the outcomes. Per-place failures
// are logged and counted; only cancellation of ctx stops the loop early.
func (im *Importer) Run(ctx context.Context, targets []Target) (Stats, error) {
	var stats Stats
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Places++
		for _, res := range im.ProcessPlace(ctx, t) {
			stats.Add(res.Outcome)
		}
	}
	return stats, nil
}

// ProcessPlace resolves the target's entities and writes the statement to
// each existing entity that lacks one for the record's year.
func (im *Importer) ProcessPlace(ctx context.Context, t Target) []Result {
	rec := t.Record
	log := im.logger.With(
		zap.String("place", rec.DisplayName),
		zap.Int("population", rec.PopulationCount),
		zap.Int("year", rec.PeriodYear),
	)
	log.Info("checking place", zap.String("query", t.Query.Kind.String()), zap.String("key", t.Query.Value))

	refs, err := im.kb.ResolveEntities(ctx, t.Query)
	if err != nil {
		log.Warn("entity lookup failed", zap.Error(err))
		return []Result{{Place: rec.DisplayName, Outcome: OutcomeFailed, Err: err}}
	}
	if len(refs) == 0 {
		log.Warn("no Wikidata match found")
		return []Result{{Place: rec.DisplayName, Outcome: OutcomeNoMatch}}
	}

	results := make([]Result, 0, len(refs))
	existing := 0
	for _, ref := range refs {
		if ref.Exists {
			existing++
		}
		outcome, err := im.processEntity(ctx, log.With(zap.String("entity", ref.ID)), rec, ref)
		results = append(results, Result{
			Place:    rec.DisplayName,
			EntityID: ref.ID,
			Outcome:  outcome,
			Err:      err,
		})
	}
	if existing == 0 {
		log.Warn("no Wikidata match found")
	}
	return results
}

func (im *Importer) processEntity(ctx context.Context, log *zap.Logger, rec model.PlaceRecord, ref model.EntityRef) (Outcome, error) {
	if !ref.Exists {
		log.Warn("no data page in Wikidata")
		return OutcomeMissing, nil
	}

	if im.written[ref.ID] {
		log.Info("population claim already written in this run")
		return OutcomeAlreadyPresent, nil
	}

	statements, err := im.kb.Statements(ctx, ref, model.PropPopulation)
	if err != nil {
		log.Warn("reading statements failed", zap.Error(err))
		return OutcomeFailed, err
	}

	if existing := ExistingClaimFor(statements, rec.PeriodYear, 1, 1); existing != nil {
		log.Info("population claim already exists",
			zap.String("statement", existing.ID),
			zap.String("amount", existing.Amount))
		return OutcomeAlreadyPresent, nil
	}

	draft := NewDraft(rec.PopulationCount, rec.PeriodYear, im.opts.Method, im.opts.Source, im.opts.AccessDate)

	if im.opts.DryRun {
		im.written[ref.ID] = true
		log.Info("dry run: would add population claim")
		return OutcomeDryRun, nil
	}

	if err := im.gate.Wait(ctx, im.opts.GateKey); err != nil {
		log.Warn("rate gate interrupted", zap.Error(err))
		return OutcomeFailed, fmt.Errorf("rate gate: %w", err)
	}

	res, err := im.kb.SubmitStatement(ctx, ref, draft)
	if err != nil {
		log.Warn("adding population claim failed", zap.Error(err))
		return OutcomeFailed, err
	}

	im.written[ref.ID] = true
	log.Info("added population claim",
		zap.String("statement", res.StatementID),
		zap.Int64("revision", res.RevisionID))
	return OutcomeWritten, nil
}
