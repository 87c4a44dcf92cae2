package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CandlePull/internal/domain/models"
	"CandlePull/internal/domain/repository"
	"CandlePull/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// LockKey is the run lock shared by every candlepull process on one cache.
const LockKey = "sync:lock"

// Syncer performs one pass over every configured pair.
type Syncer interface {
	Run(ctx context.Context) (models.RunReport, error)
}

// Runner is a long-lived component that stops when ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Options carries the App dependencies. HTTP and Lock may be nil. Stores and
// clients are owned by whoever built them and are closed after Run returns.
type Options struct {
	Sync    Syncer
	HTTP    Runner
	Lock    repository.RunLock
	LockTTL time.Duration
	Every   time.Duration
	Log     *logger.Logger
}

// App encapsulates the application lifecycle.
type App struct {
	opts Options
	log  *logger.Logger
}

func New(opts Options) *App {
	l := opts.Log
	if l == nil {
		l = logger.Nop()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	return &App{opts: opts, log: l}
}

// Run executes the sync and blocks until it is done. With once set, or
// without a schedule, it makes a single pass and returns. Otherwise it
// repeats every Every and serves HTTP until SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context, once bool) error {
	defer a.log.Info("sync stopped")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once || a.opts.Every <= 0 {
		_, err := a.RunOnce(ctx)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.opts.HTTP != nil {
		g.Go(func() error { return a.opts.HTTP.Run(gctx) })
	}
	g.Go(func() error { return a.schedule(gctx) })

	err := g.Wait()
	if ctx.Err() != nil {
		// SIGINT, SIGTERM or the parent's deadline; whatever the group
		// returned after that is part of shutting down.
		a.log.Info("shutdown signal received", logger.Error(ctx.Err()))
		return nil
	}
	return err
}

// RunOnce runs a single sync pass under the run lock. A pass that finds the
// lock held is skipped and returns an empty report.
func (a *App) RunOnce(ctx context.Context) (models.RunReport, error) {
	if a.opts.Lock != nil {
		ok, err := a.opts.Lock.TryLock(ctx, LockKey, a.opts.LockTTL)
		if err != nil {
			return models.RunReport{}, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			a.log.Warn("another sync run holds the lock, skipping", logger.String("key", LockKey))
			return models.RunReport{}, nil
		}
		defer func() {
			if err := a.opts.Lock.Unlock(context.WithoutCancel(ctx), LockKey); err != nil {
				a.log.Warn("release run lock", logger.Error(err))
			}
		}()
	}
	return a.opts.Sync.Run(ctx)
}

func (a *App) schedule(ctx context.Context) error {
	a.log.Info("sync scheduled", logger.Duration("every_ms", a.opts.Every))
	ticker := time.NewTicker(a.opts.Every)
	defer ticker.Stop()

	for {
		if _, err := a.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.log.Error("sync run failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
