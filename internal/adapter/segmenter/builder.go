package segmenter

import (
	"fmt"
	"strings"

	"topicseg/internal/domain"
)

// Builder turns boundaries into contiguous segments and folds small ones into neighbours.
type Builder struct {
	minSegmentUnits int
}

func NewBuilder(minSegmentUnits int) (*Builder, error) {
	if minSegmentUnits < 0 {
		return nil, fmt.Errorf("%w: min_segment_units must be non-negative, got %d", ErrInvalidConfig, minSegmentUnits)
	}
	return &Builder{minSegmentUnits: minSegmentUnits}, nil
}

// span is a half-open unit range.
type span struct {
	start, end int
}

func (s span) size() int { return s.end - s.start }

// Build partitions units at the given boundaries and runs the merge pass.
// Boundaries must be strictly increasing and within (0, len(units)].
func (b *Builder) Build(units []domain.TextUnit, boundaries []int) ([]domain.Segment, error) {
	n := len(units)
	if n == 0 {
		if len(boundaries) > 0 {
			return nil, fmt.Errorf("%w: %d boundaries for an empty document", ErrInvalidBoundaries, len(boundaries))
		}
		return []domain.Segment{}, nil
	}

	raw, err := cut(n, boundaries)
	if err != nil {
		return nil, err
	}

	merged := b.merge(raw)

	segments := make([]domain.Segment, len(merged))
	for i, sp := range merged {
		segments[i] = newSegment(i, units[sp.start:sp.end], sp)
	}
	return segments, nil
}

// cut builds one span per consecutive cut point pair of 0, boundaries..., n.
func cut(n int, boundaries []int) ([]span, error) {
	spans := make([]span, 0, len(boundaries)+1)
	prev := 0
	for _, bd := range boundaries {
		if bd <= prev || bd > n {
			return nil, fmt.Errorf("%w: boundary %d after %d (n=%d)", ErrInvalidBoundaries, bd, prev, n)
		}
		spans = append(spans, span{start: prev, end: bd})
		prev = bd
	}
	// A trailing boundary equal to n closes the last span itself.
	if prev < n {
		spans = append(spans, span{start: prev, end: n})
	}
	return spans, nil
}

// merge does a single left-to-right scan. An undersized span is appended to
// the previous output span. While the first output span is still undersized it
// absorbs whatever comes next. Every output span therefore reaches the minimum
// unless the whole document is smaller than it.
func (b *Builder) merge(spans []span) []span {
	out := make([]span, 0, len(spans))
	for _, sp := range spans {
		if len(out) == 0 {
			out = append(out, sp)
			continue
		}
		last := &out[len(out)-1]
		if sp.size() < b.minSegmentUnits || last.size() < b.minSegmentUnits {
			last.end = sp.end
			continue
		}
		out = append(out, sp)
	}
	return out
}

func newSegment(id int, units []domain.TextUnit, sp span) domain.Segment {
	texts := make([]string, len(units))
	words := 0
	for i, u := range units {
		texts[i] = u.Text
		words += len(strings.Fields(u.Text))
	}

	return domain.Segment{
		SegmentID: id,
		StartUnit: sp.start,
		EndUnit:   sp.end,
		UnitCount: sp.size(),
		NumWords:  words,
		Start:     units[0].Start,
		End:       units[len(units)-1].End,
		Text:      strings.Join(texts, " "),
	}
}
