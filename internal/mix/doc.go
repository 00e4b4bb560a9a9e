// Package mix assigns per-track playback gain from scene context. The fixed
// rule tables are a deterministic substitute for a full mixing/ducking
// engine: they keep summed layers from clipping or masking dialogue, and
// audio-level regression tests depend on their exact values.
package mix
