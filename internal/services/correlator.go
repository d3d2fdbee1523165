package services

import (
	"context"

	"github.com/domainbrowser/searchjobs/internal/db/models"
	"github.com/domainbrowser/searchjobs/internal/logger"
	"github.com/domainbrowser/searchjobs/internal/metrics"
	"github.com/domainbrowser/searchjobs/internal/types"
)

// DomainLookup is the batch lookup of the domain store
type DomainLookup interface {
	FindByKeys(ctx context.Context, keys []uint, ids []string) ([]models.Domain, error)
}

// Correlator merges domain classification into search hits
type Correlator struct {
	domains DomainLookup
	metrics *metrics.Collector
}

// NewCorrelatorService creates a new correlator service instance
func NewCorrelatorService(domains DomainLookup, m *metrics.Collector) *Correlator {
	return &Correlator{domains: domains, metrics: m}
}

// Correlate looks up every distinct key and target id of the hits in one
// batch and attaches the matching domain to each hit. Hits without a
// match are kept as they are. A failed lookup is logged and the hits are
// returned uncorrelated.
func (s *Correlator) Correlate(ctx context.Context, hits []types.Hit) []types.Hit {
	if len(hits) == 0 || s.domains == nil {
		return hits
	}

	var (
		keys     []uint
		ids      []string
		seenKeys = make(map[uint]bool)
		seenIDs  = make(map[string]bool)
	)
	for _, h := range hits {
		if h.Key != nil && !seenKeys[*h.Key] {
			seenKeys[*h.Key] = true
			keys = append(keys, *h.Key)
		}
		if h.Key == nil && h.Target != "" && !seenIDs[h.Target] {
			seenIDs[h.Target] = true
			ids = append(ids, h.Target)
		}
	}

	domains, err := s.domains.FindByKeys(ctx, keys, ids)
	if err != nil {
		s.metrics.RecordCorrelationFailure()
		logger.WarnWithFields("Domain lookup failed, returning uncorrelated hits", map[string]interface{}{
			"hits":  len(hits),
			"error": err.Error(),
		})
		return hits
	}

	byKey := make(map[uint]*types.DomainRef, len(domains))
	byID := make(map[string]*types.DomainRef, len(domains))
	for _, d := range domains {
		ref := &types.DomainRef{
			Key:        d.ID,
			DomainID:   d.DomainID,
			FamilyID:   d.FamilyID,
			FamilyName: d.FamilyName,
		}
		byKey[d.ID] = ref
		byID[d.DomainID] = ref
	}

	out := make([]types.Hit, len(hits))
	for i, h := range hits {
		if h.Key != nil {
			h.Domain = byKey[*h.Key]
		} else {
			h.Domain = byID[h.Target]
		}
		out[i] = h
	}
	return out
}
