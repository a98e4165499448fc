// Package source supplies record collections to the comparison pass.
// Implementations own retrieval concerns (transport, auth, caching); the
// pass only ever sees a fully materialized slice.
package source

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/advdiff/internal/record"
)

// Ref names a dataset collection.
type Ref struct {
	Dataset string `json:"dataset"`
	Config  string `json:"config"`
	Split   string `json:"split"`
}

// String renders the ref as dataset/config/split, skipping empty parts.
func (r Ref) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Dataset, r.Config, r.Split} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

// Source loads one collection.
type Source interface {
	Load(ctx context.Context, ref Ref) ([]record.Record, error)
}

// Func adapts a function to Source.
type Func func(ctx context.Context, ref Ref) ([]record.Record, error)

// Load calls f.
func (f Func) Load(ctx context.Context, ref Ref) ([]record.Record, error) {
	return f(ctx, ref)
}

// Pair is one original/adversarial source and ref pairing.
type Pair struct {
	Original       Source
	OriginalRef    Ref
	Adversarial    Source
	AdversarialRef Ref
}

// LoadPair loads both collections concurrently. The first failure cancels the other load.
func LoadPair(ctx context.Context, p Pair) (original, adversarial []record.Record, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		original, err = p.Original.Load(gctx, p.OriginalRef)
		return err
	})
	g.Go(func() error {
		var err error
		adversarial, err = p.Adversarial.Load(gctx, p.AdversarialRef)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return original, adversarial, nil
}
