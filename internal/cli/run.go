package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/popimport/internal/cache"
	"github.com/ppiankov/popimport/internal/feed"
	"github.com/ppiankov/popimport/internal/importer"
	"github.com/ppiankov/popimport/internal/logging"
	"github.com/ppiankov/popimport/internal/model"
	"github.com/ppiankov/popimport/internal/pipeline"
	"github.com/ppiankov/popimport/internal/throttle"
	"github.com/ppiankov/popimport/internal/wikibase"
)

// errNoCredentials is returned when a live run has no bot password
var errNoCredentials = errors.New("POPIMPORT_WIKIBASE_USERNAME and POPIMPORT_WIKIBASE_PASSWORD must be set (or use --dry-run)")

// importFlags are shared by the lt and lv commands
type importFlags struct {
	year       int
	dryRun     bool
	noCache    bool
	logFile    string
	accessDate string
}

// apply copies explicitly set flags over cfg
func (f *importFlags) apply(flags interface{ Changed(string) bool }, cfg *model.Config, logFile *string) {
	if flags.Changed("year") {
		cfg.Import.Year = f.year
	}
	if flags.Changed("dry-run") {
		cfg.Import.DryRun = f.dryRun
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !f.noCache
	}
	if flags.Changed("access-date") {
		cfg.Import.AccessDate = f.accessDate
	}
	if flags.Changed("log") {
		*logFile = f.logFile
	}
	if verbose {
		cfg.Output.Verbose = true
	}
}

// runImport builds the logger, clients and pipeline, then hands the
// pipeline to run and prints the resulting stats
func runImport(cfg *model.Config, name, logFile string, run func(context.Context, *pipeline.Pipeline) (importer.Stats, error)) error {
	if !cfg.Import.DryRun && (cfg.Wikibase.Username == "" || cfg.Wikibase.Password == "") {
		return errNoCredentials
	}

	logger, err := logging.New(logFile, cfg.Output.LogLevel, cfg.Output.Verbose)
	if err != nil {
		return err
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()), zap.String("pipeline", name))
	defer func() { _ = logger.Sync() }()

	var store cache.Store
	if cfg.Cache.Enabled {
		store = cache.NewLayered(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	fetcher := feed.NewFetcher(feed.Options{
		Timeout:       cfg.HTTP.Timeout,
		UserAgent:     cfg.HTTP.UserAgent,
		MaxBytes:      cfg.HTTP.MaxBodyBytes,
		HTTPProxy:     cfg.HTTP.HTTPProxy,
		HTTPSProxy:    cfg.HTTP.HTTPSProxy,
		RespectRobots: cfg.HTTP.RespectRobots,
		Cache:         store,
		CacheTTL:      cfg.Cache.DiskTTL,
	})

	client, err := wikibase.New(wikibase.Config{
		APIURL:         cfg.Wikibase.APIURL,
		SPARQLEndpoint: cfg.Wikibase.SPARQLEndpoint,
		UserAgent:      cfg.HTTP.UserAgent,
		Username:       cfg.Wikibase.Username,
		Password:       cfg.Wikibase.Password,
		MaxLag:         cfg.Wikibase.MaxLag,
		EditSummary:    cfg.Wikibase.EditSummary,
		Timeout:        cfg.HTTP.Timeout,
		Proxy:          feed.ProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy),
	}, logger)
	if err != nil {
		return err
	}

	limiter := throttle.NewLimiter(cfg.RateLimiting.WriteInterval, cfg.RateLimiting.BurstSize)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("run started",
		zap.Int("year", cfg.Import.Year),
		zap.Bool("dry_run", cfg.Import.DryRun),
		zap.Bool("cache", cfg.Cache.Enabled))

	stats, err := run(ctx, pipeline.NewPipeline(cfg, fetcher, client, limiter, logger))
	if err != nil {
		logger.Error("run aborted", zap.Error(err))
		printStats(name, logFile, stats)
		return err
	}

	printStats(name, logFile, stats)
	return nil
}

func printStats(name, logFile string, s importer.Stats) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Import Complete (%s)\n", name)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Places:          %d\n", s.Places)
	fmt.Fprintf(os.Stderr, "  Unmatched:       %d\n", s.Unmatched)
	fmt.Fprintf(os.Stderr, "  Written:         %d\n", s.Written)
	fmt.Fprintf(os.Stderr, "  Already present: %d\n", s.AlreadyPresent)
	fmt.Fprintf(os.Stderr, "  No match:        %d\n", s.NoMatch)
	fmt.Fprintf(os.Stderr, "  Missing:         %d\n", s.Missing)
	fmt.Fprintf(os.Stderr, "  Failed:          %d\n", s.Failed)
	if s.DryRun > 0 {
		fmt.Fprintf(os.Stderr, "  Dry run:         %d\n", s.DryRun)
	}
	fmt.Fprintf(os.Stderr, "  Log:             %s\n", logFile)
	fmt.Fprintf(os.Stderr, "\n")
}
