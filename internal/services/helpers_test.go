package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/domainbrowser/searchjobs/internal/db/models"
	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/metrics"
	"github.com/domainbrowser/searchjobs/internal/runner"
	"github.com/domainbrowser/searchjobs/internal/types"
)

// mockLookup is a DomainLookup driven by testify expectations
type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) FindByKeys(ctx context.Context, keys []uint, ids []string) ([]models.Domain, error) {
	args := m.Called(ctx, keys, ids)
	domains, _ := args.Get(0).([]models.Domain)
	return domains, args.Error(1)
}

// mockScheduler is a runner.Scheduler driven by testify expectations
type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) Query(ctx context.Context, ref string) (runner.SchedulerState, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(runner.SchedulerState), args.Error(1)
}

func newStore(t *testing.T) *jobstore.FileStore {
	t.Helper()
	store, err := jobstore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func uintPtr(v uint) *uint { return &v }

// assertCounter compares an unlabelled counter of the collector's registry
func assertCounter(t *testing.T, m *metrics.Collector, name, help string, want float64) {
	t.Helper()
	expected := fmt.Sprintf("# HELP %[1]s %[2]s\n# TYPE %[1]s counter\n%[1]s %[3]g\n", name, help, want)
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), name))
}

// createJob writes a job directory the way the gateway does
func createJob(t *testing.T, store jobstore.Store, id string, meta *types.JobMetadata) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), id, meta))
}

// counterEquals reports whether the labelled series of a counter has the
// wanted value. label is formatted as name="value".
func counterEquals(m *metrics.Collector, name, label string, want float64) bool {
	families, err := m.Registry().Gather()
	if err != nil {
		return false
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()) == label {
					return metric.GetCounter().GetValue() == want
				}
			}
		}
	}
	return false
}
