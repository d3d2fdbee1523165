package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/domainbrowser/searchjobs/internal/events"
	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/metrics"
	"github.com/domainbrowser/searchjobs/internal/types"
)

// failingStore fails removal of a single entry
type failingStore struct {
	jobstore.Store
	fail string
}

func (s failingStore) Remove(ctx context.Context, name string) error {
	if name == s.fail {
		return errors.New("permission denied")
	}
	return s.Store.Remove(ctx, name)
}

// unreadableStore reports one extra entry that could not be inspected
type unreadableStore struct {
	jobstore.Store
	name string
}

func (s unreadableStore) Entries(ctx context.Context) ([]jobstore.Entry, error) {
	entries, err := s.Store.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return append(entries, jobstore.Entry{Name: s.name, Err: errors.New("input/output error")}), nil
}

// everySchedule fires at a fixed sub-second interval
type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// agedReaper returns a reaper whose clock runs 30 days ahead, so that
// every entry created by the test is past the horizon
func agedReaper(opts ReaperOptions) *Reaper {
	r := NewReaperService(opts)
	r.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	return r
}

func createJobs(t *testing.T, store *jobstore.FileStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		createJob(t, store, id, sequenceMeta("local"))
	}
}

func TestSweep_RemovesExpiredJobs(t *testing.T) {
	store := newStore(t)
	createJobs(t, store, "expired001", "expired002", "fresh00001")
	future := time.Now().Add(60 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.Root(), "fresh00001"), future, future))

	m := metrics.NewCollector()
	r := agedReaper(ReaperOptions{Store: store, Metrics: m})

	report := r.Sweep(context.Background())
	sort.Strings(report.Removed)
	assert.Equal(t, 3, report.JobsScanned)
	assert.Equal(t, 2, report.JobsRemoved)
	assert.Equal(t, []string{"expired001", "expired002"}, report.Removed)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Errors)
	assert.NotEmpty(t, report.Duration)

	exists, err := store.Exists(context.Background(), "fresh00001")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.Exists(context.Background(), "expired001")
	require.NoError(t, err)
	assert.False(t, exists)

	assertCounter(t, m, "searchjobs_reaper_removed_total", "Total number of expired job directories removed", 2)
}

func TestSweep_NothingExpired(t *testing.T) {
	store := newStore(t)
	createJobs(t, store, "recent0001")
	r := NewReaperService(ReaperOptions{Store: store})

	report := r.Sweep(context.Background())
	assert.Equal(t, 1, report.JobsScanned)
	assert.Equal(t, 0, report.JobsRemoved)
	assert.NotNil(t, report.Removed)
}

func TestSweep_SkipsEntriesOutsideRoot(t *testing.T) {
	store := newStore(t)
	createJobs(t, store, "expired001")

	outside := t.TempDir()
	precious := filepath.Join(outside, "precious.txt")
	require.NoError(t, os.WriteFile(precious, []byte("keep"), 0o600))
	if err := os.Symlink(outside, filepath.Join(store.Root(), "escape0001")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	r := agedReaper(ReaperOptions{Store: store})
	report := r.Sweep(context.Background())

	assert.Equal(t, []string{"expired001"}, report.Removed)
	assert.Equal(t, []string{"escape0001"}, report.Skipped)
	assert.Empty(t, report.Errors)
	assert.FileExists(t, precious)
}

func TestSweep_LeavesStrayFiles(t *testing.T) {
	store := newStore(t)
	createJobs(t, store, "expired001")
	readme := filepath.Join(store.Root(), "README.txt")
	require.NoError(t, os.WriteFile(readme, []byte("job root"), 0o600))
	old := time.Now().Add(-365 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(readme, old, old))

	report := agedReaper(ReaperOptions{Store: store}).Sweep(context.Background())

	assert.Equal(t, []string{"expired001"}, report.Removed)
	assert.Equal(t, []string{"README.txt"}, report.Skipped)
	assert.Empty(t, report.Errors)
	assert.FileExists(t, readme)
}

func TestSweep_ReportsUnreadableEntries(t *testing.T) {
	store := newStore(t)
	createJobs(t, store, "expired001", "expired002")

	report := agedReaper(ReaperOptions{Store: unreadableStore{Store: store, name: "vanished01"}}).
		Sweep(context.Background())

	assert.Equal(t, 3, report.JobsScanned)
	assert.ElementsMatch(t, []string{"expired001", "expired002"}, report.Removed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "vanished01: input/output error")
}

func TestSweep_ContinuesAfterErrors(t *testing.T) {
	store := newStore(t)
	createJobs(t, store, "expired001", "expired002", "expired003", "expired004", "expired005", "expired006")

	r := agedReaper(ReaperOptions{Store: failingStore{Store: store, fail: "expired003"}})
	report := r.Sweep(context.Background())

	assert.Equal(t, 6, report.JobsScanned)
	assert.Equal(t, 5, report.JobsRemoved)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "expired003: permission denied")
}

func TestSweep_CancelledContext(t *testing.T) {
	store := newStore(t)
	createJobs(t, store, "expired001")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := agedReaper(ReaperOptions{Store: store}).Sweep(ctx)
	assert.Equal(t, 0, report.JobsRemoved)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "interrupted")
}

func TestSweep_PublishesRemovals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := events.NewBus(0)
	var removed atomic.Int32
	bus.Subscribe(events.EventJobRemoved, func(_ context.Context, e events.Event) error {
		removed.Add(1)
		return nil
	})
	bus.Start(ctx)
	defer func() {
		cancel()
		bus.Wait()
	}()

	store := newStore(t)
	createJobs(t, store, "expired001", "expired002")
	agedReaper(ReaperOptions{Store: store, Bus: bus}).Sweep(ctx)

	require.Eventually(t, func() bool { return removed.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestReaper_Schedule(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := newStore(t)
	createJobs(t, store, "expired001")
	r := agedReaper(ReaperOptions{Store: store})

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx, everySchedule(20*time.Millisecond))

	require.Eventually(t, func() bool {
		exists, err := store.Exists(context.Background(), "expired001")
		return err == nil && !exists
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	r.Wait()
}

func TestCleanupReport_Defaults(t *testing.T) {
	r := NewReaperService(ReaperOptions{Store: newStore(t)})
	assert.Equal(t, DefaultRetention, r.horizon)

	report := r.Sweep(context.Background())
	assert.Equal(t, types.CleanupReport{
		Removed:   []string{},
		Skipped:   []string{},
		Errors:    []string{},
		StartedAt: report.StartedAt,
		Duration:  report.Duration,
	}, report)
}
