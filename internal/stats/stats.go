// Package stats accumulates change counters over a comparison pass.
package stats

import "fmt"

// Stats holds the counters accumulated over one pass of the adversarial collection.
type Stats struct {
	Total           int `json:"total"`            // adversarial records seen
	ContextChanged  int `json:"context_changed"`  // context differs from the original
	QuestionChanged int `json:"question_changed"` // question differs from the original
	FullyIdentical  int `json:"fully_identical"`  // neither field differs
	IDHasSuffix     int `json:"id_has_suffix"`    // id contains the delimiter
	Unmatched       int `json:"unmatched"`        // base id missing from the original index
}

// Observe records one adversarial record that matched an original record.
func (s *Stats) Observe(contextChanged, questionChanged, hasSuffix bool) {
	s.Total++
	if contextChanged {
		s.ContextChanged++
	}
	if questionChanged {
		s.QuestionChanged++
	}
	if !contextChanged && !questionChanged {
		s.FullyIdentical++
	}
	if hasSuffix {
		s.IDHasSuffix++
	}
}

// ObserveUnmatched records an adversarial record with no original counterpart.
// It counts toward Total and IDHasSuffix but no change counter.
func (s *Stats) ObserveUnmatched(hasSuffix bool) {
	s.Total++
	s.Unmatched++
	if hasSuffix {
		s.IDHasSuffix++
	}
}

// Ratio returns n/Total. ok is false when Total is zero.
func (s Stats) Ratio(n int) (ratio float64, ok bool) {
	if s.Total == 0 {
		return 0, false
	}
	return float64(n) / float64(s.Total), true
}

// Percent formats n/Total with one decimal, e.g. "42.5%", or "N/A" for an empty pass.
func (s Stats) Percent(n int) string {
	r, ok := s.Ratio(n)
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", r*100)
}
