package sources

import (
	"context"
	"sync"

	"github.com/helixir/systematic-review-service/internal/domain"
)

// SourceResult holds the result of a search from one source.
type SourceResult struct {
	// Source identifies which source produced the result.
	Source domain.SourceType

	// Result contains the search results if the search succeeded.
	// Nil if Error is non-nil.
	Result *SearchResult

	// Error contains the error if the search failed.
	// Nil if Result is non-nil.
	Error error
}

// Registry manages bibliographic sources and coordinates concurrent searches.
// It provides thread-safe registration and retrieval of sources.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]Source
}

// NewRegistry creates a new source registry with an empty source map.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]Source),
	}
}

// Register adds a source to the registry.
// If a source with the same type already exists, it is replaced.
func (r *Registry) Register(source Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.SourceType()] = source
}

// Get returns a source by type, or nil if not found.
func (r *Registry) Get(sourceType domain.SourceType) Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// AllSources returns a snapshot of all registered sources.
func (r *Registry) AllSources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]Source, 0, len(r.sources))
	for _, source := range r.sources {
		sources = append(sources, source)
	}
	return sources
}

// EnabledSources returns a snapshot of the sources whose IsEnabled() method
// returns true.
func (r *Registry) EnabledSources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]Source, 0, len(r.sources))
	for _, source := range r.sources {
		if source.IsEnabled() {
			sources = append(sources, source)
		}
	}
	return sources
}

// SearchAll searches all enabled sources concurrently.
// Returns results for each source, including errors. Errors are not filtered;
// the caller decides how to handle per-source failures. The search respects
// context cancellation.
func (r *Registry) SearchAll(ctx context.Context, params SearchParams) []SourceResult {
	return r.SearchSources(ctx, params, nil)
}

// SearchSources searches specific sources concurrently.
// If sourceTypes is nil or empty, all enabled sources are searched. Requested
// source types not present in the registry are skipped.
func (r *Registry) SearchSources(ctx context.Context, params SearchParams, sourceTypes []domain.SourceType) []SourceResult {
	var targets []Source

	if len(sourceTypes) == 0 {
		targets = r.EnabledSources()
	} else {
		r.mu.RLock()
		targets = make([]Source, 0, len(sourceTypes))
		for _, st := range sourceTypes {
			if source, ok := r.sources[st]; ok {
				targets = append(targets, source)
			}
		}
		r.mu.RUnlock()
	}

	if len(targets) == 0 {
		return nil
	}

	resultChan := make(chan SourceResult, len(targets))
	var wg sync.WaitGroup

	for _, source := range targets {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()

			result, err := s.Search(ctx, params)
			resultChan <- SourceResult{
				Source: s.SourceType(),
				Result: result,
				Error:  err,
			}
		}(source)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]SourceResult, 0, len(targets))
	for result := range resultChan {
		results = append(results, result)
	}

	return results
}
