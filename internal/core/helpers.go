package core

import (
	"context"
	"sync"

	"github.com/git-pkgs/assemblies/version"
)

const defaultConcurrency = 15

// ResolveCoordinate picks the highest published version of id that satisfies rng.
// When nothing satisfies the range it returns a *ResolutionError; it never
// returns a coordinate without a version.
func ResolveCoordinate(ctx context.Context, feed Feed, id string, rng version.Range) (Coordinate, error) {
	versions, err := feed.ListVersions(ctx, id)
	if err != nil {
		return Coordinate{}, err
	}

	best, ok := rng.FindBest(versions)
	if !ok {
		available := make([]string, len(versions))
		for i, v := range versions {
			available[i] = v.String()
		}
		return Coordinate{}, &ResolutionError{ID: id, Range: rng.String(), Available: available}
	}
	return Coordinate{ID: id, Version: best}, nil
}

// ResolveAll resolves ranges in parallel and returns coordinates in input order.
func ResolveAll(ctx context.Context, feed Feed, ranges []LibraryRange) ([]Coordinate, error) {
	return ResolveAllWithConcurrency(ctx, feed, ranges, defaultConcurrency)
}

// ResolveAllWithConcurrency resolves ranges with a custom concurrency limit.
// The first failure in input order is returned.
func ResolveAllWithConcurrency(ctx context.Context, feed Feed, ranges []LibraryRange, concurrency int) ([]Coordinate, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Coordinate, len(ranges))
	errs := make([]error, len(ranges))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, lr := range ranges {
		wg.Add(1)
		go func(i int, lr LibraryRange) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}

			results[i], errs[i] = ResolveCoordinate(ctx, feed, lr.ID, lr.Range)
		}(i, lr)
	}

	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
