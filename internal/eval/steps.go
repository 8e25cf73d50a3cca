package eval

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/poemeval/internal/model"
)

// ErrLabelMismatch is returned when a reference–system pair with differing
// poem labels reaches the scoring stage in label-aware mode. This is a
// contract violation in the matching stages, not a data error, so it fails
// the page fast instead of being silently scored as zero.
var ErrLabelMismatch = errors.New("span pair labels differ in label-aware mode")

// PreprocessStep merges overlapping or touching system spans into maximal
// disjoint runs. It runs only when poem labels are ignored: without labels,
// two overlapping detections describe one region of poetry and should not
// be double-counted against precision. Reference spans are untouched; they
// are non-overlapping by construction.
type PreprocessStep struct{}

// Name returns the stage name.
func (s *PreprocessStep) Name() string {
	return "preprocess"
}

// Do replaces the evaluation's system spans with their merged, unlabeled
// form.
func (s *PreprocessStep) Do(_ context.Context, ev *Evaluation) error {
	ev.SystemSpans = model.MergeSpans(ev.SystemSpans)
	return nil
}

// MatchStep selects, for each reference span independently, the system span
// with the greatest overlap factor among those sharing its label (or among
// all system spans in ignore-label mode). A reference span with no
// positively overlapping candidate is left unmatched.
//
// Ties resolve deterministically: spans are sorted by (start, end) and only
// a strictly greater overlap replaces the current candidate, so the
// earliest-starting, lowest-index system span wins. Several reference spans
// may select the same system span; the split stage resolves that.
type MatchStep struct{}

// Name returns the stage name.
func (s *MatchStep) Name() string {
	return "match"
}

// Do fills the evaluation's reference-to-system and system-to-reference
// mappings.
func (s *MatchStep) Do(_ context.Context, ev *Evaluation) error {
	ev.RefToSys = make([]int, len(ev.ReferenceSpans))
	ev.SysToRefs = make([][]int, len(ev.SystemSpans))

	for i, ref := range ev.ReferenceSpans {
		ev.RefToSys[i] = -1

		best := -1
		bestOverlap := 0.0
		for j, sys := range ev.SystemSpans {
			overlap := ref.OverlapFactor(sys, ev.IgnoreLabel)
			if overlap > bestOverlap {
				best = j
				bestOverlap = overlap
			}
		}

		if best >= 0 {
			ev.RefToSys[i] = best
			ev.SysToRefs[best] = append(ev.SysToRefs[best], i)
		}
	}

	return nil
}

// SplitStep resolves many-to-one matches. A system span selected by k >= 2
// reference spans r_1..r_k (in start order) is partitioned into k disjoint
// sub-spans cut at the starts of r_2..r_k:
//
//	(s.start, r_2.start), (r_2.start, r_3.start), ..., (r_k.start, s.end)
//
// and the i-th sub-span is paired with r_i. A span selected by exactly one
// reference is paired whole. System spans selected by nobody stay whole and
// count as spurious during scoring.
//
// Sub-spans may be zero-width when reference spans share a start position;
// they are retained and score zero overlap against everything.
//
// Design decision: this per-reference-then-split procedure deliberately
// stands in for exact bipartite assignment. Its error profile penalizes
// split detections, which is the intended behavior, so it must not be
// replaced with a globally optimal matching.
type SplitStep struct{}

// Name returns the stage name.
func (s *SplitStep) Name() string {
	return "split"
}

// Do fills the evaluation's working span pairs.
func (s *SplitStep) Do(_ context.Context, ev *Evaluation) error {
	ev.Pairs = make([]SpanPair, 0, len(ev.ReferenceSpans))

	for sysIdx, refIdxs := range ev.SysToRefs {
		sys := ev.SystemSpans[sysIdx]

		if len(refIdxs) == 1 {
			ev.Pairs = append(ev.Pairs, SpanPair{
				Reference: ev.ReferenceSpans[refIdxs[0]],
				System:    sys,
			})
			continue
		}

		for i, refIdx := range refIdxs {
			ref := ev.ReferenceSpans[refIdx]

			start := sys.Start
			if i > 0 {
				start = ref.Start
			}
			end := sys.End
			if i < len(refIdxs)-1 {
				end = ev.ReferenceSpans[refIdxs[i+1]].Start
			}

			// Constructed as a literal: sub-spans may legitimately be
			// zero-width, which NewSpan rejects.
			ev.Pairs = append(ev.Pairs, SpanPair{
				Reference: ref,
				System:    model.Span{Start: start, End: end, Label: sys.Label},
			})
		}
	}

	return nil
}

// ScoreStep turns the working pairs into the page's relevance score,
// precision, recall, and match counts.
//
// Each pair contributes 1 for an exact interval (and, in label-aware mode,
// label) match, and otherwise its overlap factor downweighted by the
// partial match weight. Unmatched reference spans contribute nothing.
//
//	precision = relevance / (paired sub-spans + spurious system spans)
//	recall    = relevance / (reference span count)
//
// Edge cases, checked before the general formulas:
//   - No system spans: precision is 1; nothing wrong was produced.
//   - No reference spans: recall is 1 when there are also no system
//     spans, else 0.
type ScoreStep struct {
	// PartialMatchWeight scales the credit of partial matches, in [0, 1].
	// Exact matches always score 1 regardless of this weight.
	PartialMatchWeight float64
}

// Name returns the stage name.
func (s *ScoreStep) Name() string {
	return "score"
}

// Do fills the evaluation's result record.
func (s *ScoreStep) Do(_ context.Context, ev *Evaluation) error {
	result := &model.PageResult{PageID: ev.PageID}

	relevance := 0.0
	for _, pair := range ev.Pairs {
		if !ev.IgnoreLabel && pair.Reference.Label != pair.System.Label {
			return fmt.Errorf("%w: reference %s vs system %s",
				ErrLabelMismatch, pair.Reference, pair.System)
		}
		if pair.Reference.IsExactMatch(pair.System, ev.IgnoreLabel) {
			relevance++
			continue
		}
		relevance += s.PartialMatchWeight * pair.Reference.OverlapFactor(pair.System, ev.IgnoreLabel)
	}

	s.countSpans(ev, result)
	s.countPoems(ev, result)

	result.Precision = s.precision(ev, relevance)
	result.Recall = s.recall(ev, relevance)

	ev.Result = result
	return nil
}

// precision computes the page-level precision.
func (s *ScoreStep) precision(ev *Evaluation, relevance float64) float64 {
	if len(ev.SystemSpans) == 0 {
		// Nothing was produced, so nothing wrong was produced.
		return 1
	}

	// Working system spans: each paired (possibly split) sub-span counts
	// individually, and each spurious span counts once.
	working := len(ev.Pairs)
	for _, refIdxs := range ev.SysToRefs {
		if len(refIdxs) == 0 {
			working++
		}
	}
	return relevance / float64(working)
}

// recall computes the page-level recall. With no reference spans there is
// nothing to recall: the page scores 1 when the system also produced
// nothing and 0 otherwise.
func (s *ScoreStep) recall(ev *Evaluation, relevance float64) float64 {
	if len(ev.ReferenceSpans) == 0 {
		if len(ev.SystemSpans) == 0 {
			return 1
		}
		return 0
	}
	return relevance / float64(len(ev.ReferenceSpans))
}

// countSpans fills the span-level match/miss/spurious counters.
func (s *ScoreStep) countSpans(ev *Evaluation, result *model.PageResult) {
	for _, sysIdx := range ev.RefToSys {
		if sysIdx >= 0 {
			result.NSpanMatches++
		} else {
			result.NSpanMisses++
		}
	}
	for _, refIdxs := range ev.SysToRefs {
		if len(refIdxs) == 0 {
			result.NSpanSpurious++
		}
	}
}

// countPoems collapses span outcomes per distinct poem label. A poem is
// matched when at least one of its reference spans found a system span with
// positive overlap, and missed when none did. A system label with no
// reference spans on the page at all is spurious; in ignore-label mode
// merged system spans carry no label, so no poem can be spurious.
func (s *ScoreStep) countPoems(ev *Evaluation, result *model.PageResult) {
	matched := make(map[string]bool)
	for i, ref := range ev.ReferenceSpans {
		if ev.RefToSys[i] >= 0 {
			matched[ref.Label] = true
		} else if _, ok := matched[ref.Label]; !ok {
			matched[ref.Label] = false
		}
	}
	for _, hit := range matched {
		if hit {
			result.NPoemMatches++
		} else {
			result.NPoemMisses++
		}
	}

	if ev.IgnoreLabel {
		return
	}
	seen := make(map[string]bool)
	for _, sys := range ev.SystemSpans {
		if seen[sys.Label] {
			continue
		}
		seen[sys.Label] = true
		if _, ok := matched[sys.Label]; !ok {
			result.NPoemSpurious++
		}
	}
}
