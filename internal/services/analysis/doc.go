// Package analysis wraps the content understanding API behind typed calls:
// story analysis, sound design planning, and action spotting. Each call is
// singular per job and retried with exponential backoff on rate-limit and
// server-error failure classes only.
package analysis
