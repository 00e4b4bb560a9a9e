// Package audiogen wraps the external audio generation API. Calls are
// idempotent with respect to their output path: a retry overwriting the
// same file is correct, which is what the fan-out runner's retry policy
// relies on.
package audiogen
