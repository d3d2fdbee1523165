package test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/domainbrowser/searchjobs/internal/types"
)

// StaticFetcher serves structures from memory instead of the public archives
type StaticFetcher struct {
	mu          sync.RWMutex
	byID        map[string][]byte
	byAccession map[string][]byte
}

// NewStaticFetcher creates an empty fetcher
func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{
		byID:        make(map[string][]byte),
		byAccession: make(map[string][]byte),
	}
}

// AddStructure serves data for a 4 character structure id
func (f *StaticFetcher) AddStructure(pdbID string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[strings.ToUpper(pdbID)] = data
}

// AddModel serves data for a sequence accession
func (f *StaticFetcher) AddModel(accession string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byAccession[strings.ToUpper(accession)] = data
}

// FetchByID implements structure.Fetcher
func (f *StaticFetcher) FetchByID(_ context.Context, pdbID string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.byID[strings.ToUpper(pdbID)]
	if !ok {
		return nil, fmt.Errorf("%w: structure %s", types.ErrNotFound, pdbID)
	}
	return data, nil
}

// FetchByAccession implements structure.Fetcher
func (f *StaticFetcher) FetchByAccession(_ context.Context, accession string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.byAccession[strings.ToUpper(accession)]
	if !ok {
		return nil, fmt.Errorf("%w: accession %s", types.ErrNotFound, accession)
	}
	return data, nil
}
