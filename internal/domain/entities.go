package domain

import "time"

// TextUnit is one sentence (or sentence window) in a document's ordered sequence.
// Start and End are nil when the source carried no timing.
type TextUnit struct {
	Index int      `json:"index"`
	Text  string   `json:"text"`
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
}

// Segment is a contiguous span [StartUnit, EndUnit) of text units.
type Segment struct {
	SegmentID int      `json:"segment_id"`
	StartUnit int      `json:"start_unit"`
	EndUnit   int      `json:"end_unit"`
	UnitCount int      `json:"unit_count"`
	NumWords  int      `json:"num_words"`
	Start     *float64 `json:"start"`
	End       *float64 `json:"end"`
	Text      string   `json:"text"`

	Enrichment
}

// Enrichment holds the per-segment fields attached after segmentation.
type Enrichment struct {
	Summary   string   `json:"summary,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Sentiment string   `json:"sentiment,omitempty"`
}

// ThresholdPolicy names a rule converting a similarity profile into a cut-off.
type ThresholdPolicy string

const (
	PolicyFixed       ThresholdPolicy = "fixed"
	PolicyStatistical ThresholdPolicy = "statistical"
	PolicyPercentile  ThresholdPolicy = "percentile"
)

// Sentiment labels produced by the enrichment collaborators.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// SegmentationResult is the output of one pipeline run over a document.
type SegmentationResult struct {
	Segments   []Segment   `json:"segments"`
	Boundaries []int       `json:"boundaries"`
	Profile    []float64   `json:"profile,omitempty"`
	Threshold  float64     `json:"threshold"`
	Vectors    [][]float32 `json:"-"`
}

type Document struct {
	ID         string
	Path       string
	ModTime    time.Time
	Format     string
	UnitCount  int
	ConfigHash string
	RunID      string
}

type ScoredSegment struct {
	DocID   string
	Path    string
	Segment Segment
	Score   float64
}

type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Finished  time.Time `json:"finished"`
	Root      string    `json:"root"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Segments  int       `json:"segments"`
	Errors    []string  `json:"errors,omitempty"`
}
