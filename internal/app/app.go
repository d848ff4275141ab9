// Package app wires configuration to adapters and runs the pipeline.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AnabVangun/publicLegiCrawler/internal/agent"
	"github.com/AnabVangun/publicLegiCrawler/internal/config"
	"github.com/AnabVangun/publicLegiCrawler/internal/coordinator"
	"github.com/AnabVangun/publicLegiCrawler/internal/domain"
	"github.com/AnabVangun/publicLegiCrawler/internal/extract"
	"github.com/AnabVangun/publicLegiCrawler/internal/infrastructure/legifrance"
	"github.com/AnabVangun/publicLegiCrawler/internal/infrastructure/storage"
	"github.com/AnabVangun/publicLegiCrawler/internal/ports"
	"github.com/AnabVangun/publicLegiCrawler/internal/protocol"
)

// Application wires configs to the pipeline components.
type Application struct {
	cfg config.Config
	log *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, logger *slog.Logger) *Application {
	return &Application{cfg: cfg, log: logger}
}

// InitDB creates the storage schema. Idempotent; meant to run once
// before the first crawl.
func (a *Application) InitDB(ctx context.Context) error {
	db, err := storage.Open(ctx, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	return storage.NewPostgresRepository(db).InitSchema(ctx)
}

// Run executes one full crawl for the named jobs (all configured jobs
// when names is empty) and returns once every accepted job has
// drained.
func (a *Application) Run(ctx context.Context, names []string) error {
	jobs, err := selectJobs(a.cfg.Jobs, names)
	if err != nil {
		return err
	}

	db, err := storage.Open(ctx, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	catalog := legifrance.New(ctx, legifrance.Options{
		Host:         a.cfg.Legifrance.Host,
		TokenURL:     a.cfg.Legifrance.TokenURL,
		ClientID:     a.cfg.Legifrance.ClientID,
		ClientSecret: a.cfg.Legifrance.ClientSecret,
		QuotaLimit:   a.cfg.Legifrance.QuotaLimit,
		QuotaPeriod:  a.cfg.Legifrance.Period(),
	}, a.log.With("component", "legifrance"))

	repo := storage.NewPostgresRepository(db)

	return run(ctx, catalog, repo, extract.New().Extract, jobs, a.log)
}

// run assembles the three actors around their channels, submits the
// jobs, and drives the coordinator to completion. Split from Run so
// tests can plug fake collaborators.
func run(ctx context.Context, catalog ports.Catalog, repo ports.Repository, extractFn ports.ExtractFunc, jobs []domain.Job, logger *slog.Logger) error {
	control := make(chan protocol.ControlMsg, len(jobs)+1)
	sourceCmds := make(chan protocol.SourceCommand, 16)
	sourceEvs := make(chan protocol.SourceEvent, 16)
	storeCmds := make(chan protocol.StoreCommand, 16)
	storeEvs := make(chan protocol.StoreEvent, 16)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		agent.NewSource(catalog, sourceCmds, sourceEvs, logger.With("component", "source")).Run(ctx)
	}()
	go func() {
		defer wg.Done()
		agent.NewStore(repo, storeCmds, storeEvs, logger.With("component", "store")).Run(ctx)
	}()

	for _, job := range jobs {
		control <- protocol.SubmitJob{Job: job}
	}
	control <- protocol.EndOfSubmissions{}

	coord := coordinator.New(coordinator.Channels{
		Control:    control,
		SourceCmds: sourceCmds,
		SourceEvs:  sourceEvs,
		StoreCmds:  storeCmds,
		StoreEvs:   storeEvs,
	}, extractFn, logger.With("component", "coordinator"))

	err := coord.Run()

	// Shutdown signal: agents drain their remaining commands, close
	// their event channels and exit. Late events are discarded so a
	// failed run cannot wedge an agent on a full channel.
	close(sourceCmds)
	close(storeCmds)
	go func() {
		for range sourceEvs {
		}
	}()
	go func() {
		for range storeEvs {
		}
	}()
	wg.Wait()

	return err
}

func selectJobs(configured []domain.Job, names []string) ([]domain.Job, error) {
	if len(names) == 0 {
		return configured, nil
	}

	byName := make(map[string]domain.Job, len(configured))
	for _, job := range configured {
		byName[job.Name] = job
	}

	jobs := make([]domain.Job, 0, len(names))
	for _, name := range names {
		job, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown job %q", name)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
