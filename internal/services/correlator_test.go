package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/domainbrowser/searchjobs/internal/db/dbtest"
	"github.com/domainbrowser/searchjobs/internal/db/models"
	"github.com/domainbrowser/searchjobs/internal/db/repos"
	"github.com/domainbrowser/searchjobs/internal/metrics"
	"github.com/domainbrowser/searchjobs/internal/types"
)

func seedDomains(t *testing.T) *repos.DomainRepository {
	t.Helper()
	gdb := dbtest.NewSQLite(t)
	require.NoError(t, gdb.Create(&[]models.Domain{
		{ID: 123, DomainID: "1abcA01", FamilyID: "3.40.50.300", FamilyName: "P-loop NTPases"},
		{ID: 456, DomainID: "2xyzB02", FamilyID: "2.60.40.10", FamilyName: "Immunoglobulins"},
	}).Error)
	return repos.NewDomainRepository(gdb)
}

func TestCorrelate_AttachesDomains(t *testing.T) {
	repo := seedDomains(t)
	c := NewCorrelatorService(repo, nil)

	hits := []types.Hit{
		{Ordinal: 1, Target: "123.pdb", Key: uintPtr(123)},
		{Ordinal: 2, Target: "2xyzB02"},
		{Ordinal: 3, Target: "777.pdb", Key: uintPtr(777)},
		{Ordinal: 4, Target: "123.pdb_A", Key: uintPtr(123)},
	}

	out := c.Correlate(context.Background(), hits)
	require.Len(t, out, 4)

	require.NotNil(t, out[0].Domain)
	assert.Equal(t, "1abcA01", out[0].Domain.DomainID)
	assert.Equal(t, "P-loop NTPases", out[0].Domain.FamilyName)

	require.NotNil(t, out[1].Domain)
	assert.Equal(t, uint(456), out[1].Domain.Key)

	assert.Nil(t, out[2].Domain, "unknown key keeps the hit unannotated")
	require.NotNil(t, out[3].Domain)
	assert.Equal(t, "1abcA01", out[3].Domain.DomainID)

	assert.Nil(t, hits[0].Domain, "input hits are not modified")
}

func TestCorrelate_SingleLookup(t *testing.T) {
	gdb := dbtest.NewSQLite(t)
	c := NewCorrelatorService(repos.NewDomainRepository(gdb), nil)
	counter := dbtest.CountQueries(t, gdb)

	hits := make([]types.Hit, 0, 50)
	for i := 0; i < 50; i++ {
		hits = append(hits, types.Hit{Ordinal: i + 1, Target: "x", Key: uintPtr(uint(i % 7))})
	}
	c.Correlate(context.Background(), hits)

	assert.Equal(t, 1, counter.N())
}

func TestCorrelate_DeduplicatesKeys(t *testing.T) {
	lookup := new(mockLookup)
	lookup.On("FindByKeys", mock.Anything, []uint{5, 6}, []string{"d1"}).
		Return([]models.Domain{}, nil).Once()

	c := NewCorrelatorService(lookup, nil)
	c.Correlate(context.Background(), []types.Hit{
		{Target: "5.pdb", Key: uintPtr(5)},
		{Target: "6.pdb", Key: uintPtr(6)},
		{Target: "5.pdb_B", Key: uintPtr(5)},
		{Target: "d1"},
		{Target: "d1"},
	})

	lookup.AssertExpectations(t)
}

func TestCorrelate_LookupFailure(t *testing.T) {
	lookup := new(mockLookup)
	lookup.On("FindByKeys", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))
	m := metrics.NewCollector()

	c := NewCorrelatorService(lookup, m)
	hits := []types.Hit{{Ordinal: 1, Target: "123.pdb", Key: uintPtr(123)}}

	out := c.Correlate(context.Background(), hits)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Domain)
	assertCounter(t, m, "searchjobs_correlation_failures_total", "Total number of failed domain store lookups", 1)
}

func TestCorrelate_NoHits(t *testing.T) {
	lookup := new(mockLookup)
	c := NewCorrelatorService(lookup, nil)

	assert.Empty(t, c.Correlate(context.Background(), nil))
	lookup.AssertNotCalled(t, "FindByKeys", mock.Anything, mock.Anything, mock.Anything)
}
