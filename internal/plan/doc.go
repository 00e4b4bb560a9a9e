// Package plan defines the sound design data model produced by the analysis
// collaborators and consumed by the generation fan-out: scenes with mix
// attributes, per-type segment lists, spotted actions, and the planned
// generation requests derived from them.
package plan
