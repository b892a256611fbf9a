// Package pipeline wires feeds, parsers and the importer into the LT and
// LV import runs.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/popimport/internal/atvk"
	"github.com/ppiankov/popimport/internal/feed"
	"github.com/ppiankov/popimport/internal/importer"
	"github.com/ppiankov/popimport/internal/model"
	"github.com/ppiankov/popimport/internal/sdmx"
)

// DocumentFetcher retrieves remote feed documents
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*feed.Document, error)
	Invalidate(rawURL string) error
}

// Pipeline orchestrates one import run
type Pipeline struct {
	fetcher DocumentFetcher
	kb      importer.KnowledgeBase
	gate    importer.RateGate
	logger  *zap.Logger
	config  *model.Config
	now     func() time.Time
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, fetcher DocumentFetcher, kb importer.KnowledgeBase, gate importer.RateGate, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher: fetcher,
		kb:      kb,
		gate:    gate,
		logger:  logger,
		config:  cfg,
		now:     time.Now,
	}
}

// RunLT imports the Statistics Lithuania city populations. Places are
// matched to items by their lt.wikipedia.org article title.
func (p *Pipeline) RunLT(ctx context.Context) (importer.Stats, error) {
	cfg := p.config.LT
	year := p.config.Import.Year

	accessed, err := p.accessDate()
	if err != nil {
		return importer.Stats{}, err
	}

	// 1. City names from the code list
	structure, err := p.fetcher.Fetch(ctx, cfg.StructureURL)
	if err != nil {
		return importer.Stats{}, fmt.Errorf("fetch structure: %w", err)
	}
	names, err := sdmx.ParseCodelist(bytes.NewReader(structure.Body), cfg.CodelistID, cfg.Language)
	if err != nil {
		p.dropCached(structure)
		return importer.Stats{}, fmt.Errorf("parse structure: %w", err)
	}
	p.logger.Info("loaded code list",
		zap.String("codelist", cfg.CodelistID),
		zap.Int("codes", len(names)),
		zap.Bool("cached", structure.FromCache))

	// 2. Observations for the target year
	dataURL, err := sdmx.ObservationsURL(cfg.DataURL, year)
	if err != nil {
		return importer.Stats{}, err
	}
	data, err := p.fetcher.Fetch(ctx, dataURL)
	if err != nil {
		return importer.Stats{}, fmt.Errorf("fetch observations: %w", err)
	}
	counts, err := sdmx.ParseObservations(bytes.NewReader(data.Body), cfg.DimensionID, cfg.PeriodID, year)
	if err != nil {
		p.dropCached(data)
		return importer.Stats{}, fmt.Errorf("parse observations: %w", err)
	}
	p.logger.Info("loaded observations",
		zap.String("url", dataURL),
		zap.Int("observations", len(counts)),
		zap.Bool("cached", data.FromCache))

	// 3. Join and import
	records, unmatched := importer.JoinCodes(names, counts, year)
	for _, code := range unmatched {
		p.logger.Debug("no observation for code", zap.String("code", code), zap.String("name", names[code]))
	}

	targets := importer.TargetsByTitle(records, model.EntityQuery{
		Wiki:    cfg.Wiki,
		Country: cfg.Country,
		Class:   cfg.PlaceClass,
	})

	im := importer.New(p.kb, p.gate, p.logger, importer.Options{
		Method:     p.config.Import.DeterminationMethod,
		Source:     importer.Source{StatisticsOffice: cfg.StatisticsOffice, URL: dataURL},
		AccessDate: accessed,
		DryRun:     p.config.Import.DryRun,
		GateKey:    p.config.Wikibase.APIURL,
	})

	stats, err := im.Run(ctx, targets)
	stats.Unmatched = len(unmatched)
	p.logger.Info("run finished", stats.Fields()...)
	return stats, err
}

// RunLV imports the Central Statistical Bureau of Latvia populations from
// local exports. Places are matched to items by their ATVK code.
func (p *Pipeline) RunLV(ctx context.Context) (importer.Stats, error) {
	cfg := p.config.LV
	year := p.config.Import.Year

	accessed, err := p.accessDate()
	if err != nil {
		return importer.Stats{}, err
	}

	// 1. Classification: normalized name -> ATVK code
	classDoc, err := feed.ReadFile(cfg.ClassificationFile)
	if err != nil {
		return importer.Stats{}, err
	}
	classReader, err := atvk.Decode(bytes.NewReader(classDoc.Body), cfg.Encoding)
	if err != nil {
		return importer.Stats{}, err
	}
	reference, err := atvk.ParseClassification(classReader)
	if err != nil {
		return importer.Stats{}, fmt.Errorf("parse classification: %w", err)
	}
	p.logger.Info("loaded classification", zap.String("file", classDoc.Source), zap.Int("entries", len(reference)))

	// 2. Population rows
	popDoc, err := feed.ReadFile(cfg.PopulationFile)
	if err != nil {
		return importer.Stats{}, err
	}
	popReader, err := atvk.Decode(bytes.NewReader(popDoc.Body), cfg.Encoding)
	if err != nil {
		return importer.Stats{}, err
	}
	records, err := atvk.ParsePopulation(popReader, year)
	if err != nil {
		return importer.Stats{}, fmt.Errorf("parse population: %w", err)
	}
	p.logger.Info("loaded population", zap.String("file", popDoc.Source), zap.Int("rows", len(records)))

	// 3. Join and import
	matches, unmatched := importer.JoinReference(records, reference)
	for _, rec := range unmatched {
		p.logger.Info("no match for name", zap.String("name", rec.DisplayName))
	}

	im := importer.New(p.kb, p.gate, p.logger, importer.Options{
		Method:     p.config.Import.DeterminationMethod,
		Source:     importer.Source{StatisticsOffice: cfg.StatisticsOffice, URL: cfg.SourceURL},
		AccessDate: accessed,
		DryRun:     p.config.Import.DryRun,
		GateKey:    p.config.Wikibase.APIURL,
	})

	stats, err := im.Run(ctx, importer.TargetsByIdentifier(matches, cfg.IdentifierProperty))
	stats.Unmatched = len(unmatched)
	p.logger.Info("run finished", stats.Fields()...)
	return stats, err
}

// dropCached evicts a cached document that failed to parse so the next
// run fetches it again
func (p *Pipeline) dropCached(doc *feed.Document) {
	if !doc.FromCache {
		return
	}
	if err := p.fetcher.Invalidate(doc.Source); err != nil {
		p.logger.Warn("dropping cached document failed", zap.String("url", doc.Source), zap.Error(err))
		return
	}
	p.logger.Info("dropped unparseable cached document", zap.String("url", doc.Source))
}

// accessDate is the configured override or today in UTC
func (p *Pipeline) accessDate() (model.WbTime, error) {
	if s := p.config.Import.AccessDate; s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return model.WbTime{}, fmt.Errorf("parse access date %q: %w", s, err)
		}
		return model.NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	now := p.now().UTC()
	return model.NewDate(now.Year(), int(now.Month()), now.Day()), nil
}
