package history

import (
	"context"
	"fmt"
	"os"

	"github.com/kilupskalvis/geoedit/internal/models"
	"golang.org/x/sync/errgroup"
)

// LoadEntities reads entity documents concurrently. The result keeps the
// argument order, so a later file cannot shadow an earlier one on merge.
func LoadEntities(ctx context.Context, paths []string) ([]models.Entity, error) {
	results := make([][]models.Entity, len(paths))
	g, ctx := errgroup.WithContext(ctx)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			entities, err := models.DecodeEntities(f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = entities
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.Entity
	for _, entities := range results {
		all = append(all, entities...)
	}
	return all, nil
}

// Load merges the data files into a new history and, if historyPath is set,
// restores the saved edits on top.
func Load(ctx context.Context, dataPaths []string, historyPath string, opts ...Option) (*History, error) {
	entities, err := LoadEntities(ctx, dataPaths)
	if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	h := New(opts...)
	if err := h.Merge(entities, nil); err != nil {
		return nil, fmt.Errorf("failed to merge data: %w", err)
	}
	h.logger.Info("data loaded", "files", len(dataPaths), "entities", len(entities))

	if historyPath == "" {
		return h, nil
	}

	data, err := os.ReadFile(historyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if err := h.FromJSON(data); err != nil {
		return nil, fmt.Errorf("failed to restore history: %w", err)
	}
	h.logger.Info("history restored", "edits", h.Len()-1, "index", h.Index())
	return h, nil
}
