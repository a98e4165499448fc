package ops

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hpungsan/advdiff/internal/compare"
	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/source"
	"github.com/hpungsan/advdiff/internal/stats"
)

// DefaultMaxSamples is the number of samples printed when none is requested.
const DefaultMaxSamples = 5

// CompareInput contains parameters for the Compare operation.
type CompareInput struct {
	Variant         string // AddSent (default) or AddOneSent
	MaxSamples      int    // 0 disables samples; negative is rejected
	SnippetLen      int    // 0 uses config snippet_len
	OriginalFile    string // local record file instead of the hub
	AdversarialFile string
	Refresh         bool // bypass cached collections
	RestrictPaths   bool // validate file paths (MCP and web callers)
}

// CompareOutput contains the result of the Compare operation.
type CompareOutput struct {
	Dataset     string           `json:"dataset"`
	Original    string           `json:"original"`
	Adversarial string           `json:"adversarial"`
	MaxSamples  int              `json:"max_samples"`
	Stats       stats.Stats      `json:"stats"`
	Samples     []compare.Sample `json:"samples"`
}

// Compare loads the original and adversarial collections and runs one pass
// over them. Samples reach obs as they are found and are also returned.
func Compare(ctx context.Context, env Env, input CompareInput, obs Observer) (*CompareOutput, error) {
	if obs == nil {
		obs = Discard
	}
	cfg := env.config()
	logger := env.logger()

	variant, err := ValidateVariant(input.Variant)
	if err != nil {
		return nil, err
	}
	if input.MaxSamples < 0 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("samples must be >= 0, got %d", input.MaxSamples))
	}
	snippetLen := input.SnippetLen
	if snippetLen < 0 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("snippet_len must be >= 0, got %d", snippetLen))
	}
	if snippetLen == 0 {
		snippetLen = cfg.SnippetLen
	}
	if snippetLen <= 0 {
		snippetLen = compare.DefaultSnippetLen
	}

	pair, err := buildPair(env, input, variant)
	if err != nil {
		return nil, err
	}

	obs.Configured(variant, input.MaxSamples)
	obs.Loading(variant)

	original, adversarial, err := source.LoadPair(ctx, pair)
	if err != nil {
		return nil, err
	}
	logger.Debug("collections loaded",
		zap.String("original", pair.OriginalRef.String()), zap.Int("original_rows", len(original)),
		zap.String("adversarial", pair.AdversarialRef.String()), zap.Int("adversarial_rows", len(adversarial)))

	obs.Indexing()
	obs.Scanning(input.MaxSamples)

	out := &CompareOutput{
		Dataset:     variant,
		Original:    pair.OriginalRef.String(),
		Adversarial: pair.AdversarialRef.String(),
		MaxSamples:  input.MaxSamples,
		Samples:     []compare.Sample{},
	}
	st, err := compare.Run(compare.Input{
		Original:    original,
		Adversarial: adversarial,
		MaxSamples:  input.MaxSamples,
		SnippetLen:  snippetLen,
	}, func(s compare.Sample) error {
		out.Samples = append(out.Samples, s)
		return obs.Sample(s)
	})
	if err != nil {
		return nil, err
	}
	out.Stats = st

	logger.Info("comparison finished",
		zap.String("dataset", variant),
		zap.Int("total", st.Total),
		zap.Int("context_changed", st.ContextChanged),
		zap.Int("question_changed", st.QuestionChanged),
		zap.Int("unmatched", st.Unmatched))
	return out, nil
}

// buildPair selects a source per side: a local file when one is given,
// otherwise the hub (through the cache when enabled).
func buildPair(env Env, input CompareInput, variant string) (source.Pair, error) {
	cfg := env.config()
	pair := source.Pair{
		OriginalRef:    source.Ref{Dataset: cfg.OriginalDataset, Config: cfg.OriginalConfig, Split: cfg.Split},
		AdversarialRef: source.Ref{Dataset: cfg.AdversarialDataset, Config: variant, Split: cfg.Split},
	}

	var remote source.Source
	if input.OriginalFile == "" || input.AdversarialFile == "" {
		if env.Remote == nil {
			return source.Pair{}, errors.NewInvalidRequest("no dataset hub configured; pass both record files")
		}
		remote = env.Remote
		if env.DB != nil {
			remote = &source.Cached{
				DB:      env.DB,
				Next:    env.Remote,
				TTL:     cfg.CacheTTL(),
				Refresh: input.Refresh,
				Logger:  env.logger(),
			}
		}
	}

	var err error
	if pair.Original, err = fileOr(input.OriginalFile, remote, input.RestrictPaths, env); err != nil {
		return source.Pair{}, err
	}
	if input.OriginalFile != "" {
		pair.OriginalRef = source.Ref{Dataset: input.OriginalFile}
	}
	if pair.Adversarial, err = fileOr(input.AdversarialFile, remote, input.RestrictPaths, env); err != nil {
		return source.Pair{}, err
	}
	if input.AdversarialFile != "" {
		pair.AdversarialRef = source.Ref{Dataset: input.AdversarialFile}
	}
	return pair, nil
}

func fileOr(path string, remote source.Source, restrict bool, env Env) (source.Source, error) {
	if path == "" {
		return remote, nil
	}
	if restrict {
		if err := ValidateRecordPath(path, env.config()); err != nil {
			return nil, err
		}
	}
	return source.File{Path: path, NoFollow: restrict}, nil
}
