package scan

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome of scanning one file in a batch.
type FileResult struct {
	Path   string
	Result *Result
	Err    error
}

// ScanFiles scans the files at paths with at most concurrency scans in
// flight. A failing file does not stop the others; results keep the order
// of paths. Files not started before ctx ends report the context error.
func (s *Service) ScanFiles(ctx context.Context, paths []string, concurrency int) []FileResult {
	results := make([]FileResult, len(paths))
	if concurrency <= 0 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, path := range paths {
		results[i].Path = path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			data, err := os.ReadFile(path) //nolint:gosec // operator-provided path
			if err != nil {
				results[i].Err = fmt.Errorf("read %s: %w", path, err)
				return nil
			}
			results[i].Result, results[i].Err = s.Scan(ctx, data)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
