package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/domainbrowser/searchjobs/internal/events"
	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/logger"
	"github.com/domainbrowser/searchjobs/internal/metrics"
	"github.com/domainbrowser/searchjobs/internal/types"
)

const (
	// DefaultRetention is the age after which a job directory is removed
	DefaultRetention = 7 * 24 * time.Hour
	// sweepParallelism bounds concurrent removals during a sweep
	sweepParallelism = 4
)

// ReaperOptions configures the retention reaper
type ReaperOptions struct {
	Store   jobstore.Store
	Horizon time.Duration
	Bus     *events.Bus
	Metrics *metrics.Collector
}

// Reaper removes job directories older than the retention horizon
type Reaper struct {
	store   jobstore.Store
	horizon time.Duration
	bus     *events.Bus
	metrics *metrics.Collector
	now     func() time.Time

	sweepMu sync.Mutex // one sweep at a time
	wg      sync.WaitGroup
}

// NewReaperService creates a new reaper service instance
func NewReaperService(opts ReaperOptions) *Reaper {
	if opts.Horizon <= 0 {
		opts.Horizon = DefaultRetention
	}
	return &Reaper{
		store:   opts.Store,
		horizon: opts.Horizon,
		bus:     opts.Bus,
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

// Sweep removes every job directory of the root last modified before
// the horizon. Other entries (files, symlinks) and directories that
// resolve outside the root are reported as skipped and left in place.
// A failing entry is recorded and the sweep moves on.
func (r *Reaper) Sweep(ctx context.Context) types.CleanupReport {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	started := r.now()
	report := types.CleanupReport{
		Removed:   []string{},
		Skipped:   []string{},
		Errors:    []string{},
		StartedAt: started.UTC(),
	}

	entries, err := r.store.Entries(ctx)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		r.finish(&report, started)
		return report
	}
	report.JobsScanned = len(entries)

	cutoff := started.Add(-r.horizon)
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(sweepParallelism)

	for _, entry := range entries {
		if entry.Err != nil {
			mu.Lock()
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", entry.Name, entry.Err))
			mu.Unlock()
			continue
		}
		if !entry.ModTime.Before(cutoff) {
			continue
		}
		if !entry.IsDir {
			mu.Lock()
			report.Skipped = append(report.Skipped, entry.Name)
			mu.Unlock()
			logger.WarnWithFields("Leaving non-directory entry in the job root", map[string]interface{}{
				"entry": entry.Name,
			})
			continue
		}
		if ctx.Err() != nil {
			mu.Lock()
			report.Errors = append(report.Errors, fmt.Sprintf("sweep interrupted: %v", ctx.Err()))
			mu.Unlock()
			break
		}

		name := entry.Name
		g.Go(func() error {
			err := r.store.Remove(ctx, name)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Removed = append(report.Removed, name)
				r.bus.Publish(events.Event{Type: events.EventJobRemoved, JobID: name})
			case errors.Is(err, jobstore.ErrOutsideRoot):
				report.Skipped = append(report.Skipped, name)
				logger.WarnWithFields("Refusing to remove entry outside the job root", map[string]interface{}{
					"entry": name,
					"error": err.Error(),
				})
			default:
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	report.JobsRemoved = len(report.Removed)
	r.finish(&report, started)
	return report
}

func (r *Reaper) finish(report *types.CleanupReport, started time.Time) {
	report.Duration = r.now().Sub(started).String()
	r.metrics.RecordSweep(*report)

	fields := map[string]interface{}{
		"scanned":  report.JobsScanned,
		"removed":  report.JobsRemoved,
		"skipped":  len(report.Skipped),
		"errors":   len(report.Errors),
		"duration": report.Duration,
	}
	if len(report.Errors) > 0 {
		logger.WarnWithFields("Retention sweep finished with errors", fields)
		return
	}
	logger.InfoWithFields("Retention sweep finished", fields)
}

// Start runs Sweep on the schedule until ctx is cancelled. A sweep that
// is still running when the next one is due causes that run to be
// skipped.
func (r *Reaper) Start(ctx context.Context, schedule cron.Schedule) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(schedule, cron.FuncJob(func() {
		r.Sweep(ctx)
	}))
	c.Start()
	logger.Infof("Retention reaper scheduled, horizon %s", r.horizon)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		<-ctx.Done()
		<-c.Stop().Done()
		logger.Debug("Retention reaper stopped")
	}()
}

// Wait blocks until a started schedule has stopped and its last sweep
// has returned
func (r *Reaper) Wait() {
	r.wg.Wait()
}
