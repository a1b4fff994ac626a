package port

import "topicseg/internal/domain"

// TranscriptReader produces the ordered text units of one input document.
type TranscriptReader interface {
	Read(path string) ([]domain.TextUnit, error)
}
