package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/hpungsan/advdiff/internal/cache"
	"github.com/hpungsan/advdiff/internal/errors"
)

// CacheListOutput contains the result of the CacheList operation.
type CacheListOutput struct {
	Items []cache.Entry `json:"items"`
	Total int           `json:"total"`
}

// CacheList returns every cached collection, newest first.
func CacheList(ctx context.Context, env Env) (*CacheListOutput, error) {
	if env.DB == nil {
		return nil, errors.NewInvalidRequest("dataset cache is disabled")
	}
	entries, err := cache.List(ctx, env.DB)
	if err != nil {
		return nil, err
	}
	return &CacheListOutput{Items: entries, Total: len(entries)}, nil
}

// CachePurgeInput contains parameters for the CachePurge operation.
type CachePurgeInput struct {
	Dataset       *string // optional filter by dataset name
	OlderThanDays *int    // optional, only purge fetches older than N days
}

// CachePurgeOutput contains the result of the CachePurge operation.
type CachePurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// CachePurge deletes cached collections matching the filters.
func CachePurge(ctx context.Context, env Env, input CachePurgeInput) (*CachePurgeOutput, error) {
	if env.DB == nil {
		return nil, errors.NewInvalidRequest("dataset cache is disabled")
	}

	var filter cache.PurgeFilter
	if input.Dataset != nil {
		filter.Dataset = *input.Dataset
	}
	if input.OlderThanDays != nil {
		if *input.OlderThanDays < 0 {
			return nil, errors.NewInvalidRequest("older_than_days must be >= 0")
		}
		filter.OlderThan = time.Duration(*input.OlderThanDays) * 24 * time.Hour
	}

	count, err := cache.Purge(ctx, env.DB, filter)
	if err != nil {
		return nil, err
	}

	return &CachePurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.Dataset, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, dataset *string, olderThanDays *int) string {
	if count == 0 {
		return "No cached collections to purge"
	}

	word := "collection"
	if count > 1 {
		word = "collections"
	}

	msg := fmt.Sprintf("Purged %d cached %s", count, word)

	if dataset != nil {
		msg += fmt.Sprintf(" of dataset %q", *dataset)
	}

	if olderThanDays != nil && *olderThanDays > 0 {
		msg += fmt.Sprintf(" (fetched more than %d days ago)", *olderThanDays)
	}

	return msg
}
