package rag

import "fmt"

// ChunkingConfig controls the sliding-window chunker.
type ChunkingConfig struct {
	// ChunkSize is the window length in characters. Must be > 0.
	ChunkSize int
	// Overlap is how many characters consecutive windows share.
	// Must satisfy 0 <= Overlap < ChunkSize, otherwise chunking cannot progress.
	Overlap int
}

// DefaultChunkingConfig returns the chunking parameters used when none are configured.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{ChunkSize: 500, Overlap: 100}
}

// Validate checks the window invariants before any chunking starts.
func (c ChunkingConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be > 0, got %d", c.ChunkSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return fmt.Errorf("overlap must satisfy 0 <= overlap < chunk_size, got overlap=%d chunk_size=%d", c.Overlap, c.ChunkSize)
	}
	return nil
}

// ChunkText splits text into overlapping windows. Window i starts at
// i*(chunk_size-overlap) and spans chunk_size characters, until a window would
// start at or past the end of the text. Text shorter than one window yields a
// single chunk equal to the text; empty text yields no chunks. No chunk is
// ever empty. Offsets are counted in runes so multi-byte characters are never
// split.
func ChunkText(text string, cfg ChunkingConfig) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	if len(runes) <= cfg.ChunkSize {
		return []string{text}, nil
	}

	step := cfg.ChunkSize - cfg.Overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
