// Package compare runs the single pass over an adversarial collection:
// it resolves each record against the original index, aggregates change
// counters, and emits highlighted diff samples up to a limit.
package compare

import (
	"github.com/hpungsan/advdiff/internal/record"
	"github.com/hpungsan/advdiff/internal/stats"
	"github.com/hpungsan/advdiff/internal/textdiff"
)

// DefaultSnippetLen is the number of trailing context runes kept in a sample.
const DefaultSnippetLen = 400

// Input contains the collections and limits for one pass.
type Input struct {
	Original    []record.Record
	Adversarial []record.Record
	MaxSamples  int // 0 disables samples
	SnippetLen  int // trailing context runes per sample; <= 0 keeps the whole context
}

// Sample is one changed adversarial record rendered against its original.
type Sample struct {
	BaseID           string          `json:"base_id"`
	AdversarialID    string          `json:"adversarial_id"`
	Suffix           string          `json:"suffix"`
	QuestionChanged  bool            `json:"question_changed"`
	ContextChanged   bool            `json:"context_changed"`
	Question         textdiff.Result `json:"question"`
	Context          textdiff.Result `json:"context"`
	ContextTruncated bool            `json:"context_truncated"`
}

// Run indexes in.Original and walks in.Adversarial once. Samples go to emit
// as they are found; a non-nil error from emit stops the pass.
// Change detection compares the strings directly and never consults the
// diff's Identical flag.
func Run(in Input, emit func(Sample) error) (stats.Stats, error) {
	var st stats.Stats
	index := record.BuildIndex(in.Original)
	emitted := 0

	for _, adv := range in.Adversarial {
		base, hasSuffix := record.ResolveID(adv.ID)

		orig, ok := index[base]
		if !ok {
			st.ObserveUnmatched(hasSuffix)
			continue
		}

		contextChanged := orig.Context != adv.Context
		questionChanged := orig.Question != adv.Question
		st.Observe(contextChanged, questionChanged, hasSuffix)

		if emitted >= in.MaxSamples || !(contextChanged || questionChanged) {
			continue
		}

		sample := Sample{
			BaseID:          base,
			AdversarialID:   adv.ID,
			Suffix:          record.Suffix(adv.ID, base),
			QuestionChanged: questionChanged,
			ContextChanged:  contextChanged,
			Question:        textdiff.Compute(orig.Question, adv.Question),
		}
		sample.Context, sample.ContextTruncated = textdiff.Compute(orig.Context, adv.Context).Tail(in.SnippetLen)

		if emit != nil {
			if err := emit(sample); err != nil {
				return st, err
			}
		}
		emitted++
	}

	return st, nil
}
