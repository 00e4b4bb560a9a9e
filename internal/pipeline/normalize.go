package pipeline

import (
	"context"

	"soundscape/internal/soundgen"
)

// Normalizer adjusts generated tracks toward a loudness target. Loudness
// measurement and transcoding are external capabilities, so the default
// implementation passes tracks through untouched.
type Normalizer interface {
	Normalize(ctx context.Context, tracks []soundgen.Track, targetLUFS float64) ([]soundgen.Track, error)
}

// NoopNormalizer satisfies Normalizer without touching audio.
type NoopNormalizer struct{}

// Normalize returns the tracks unchanged.
func (NoopNormalizer) Normalize(_ context.Context, tracks []soundgen.Track, _ float64) ([]soundgen.Track, error) {
	return tracks, nil
}
