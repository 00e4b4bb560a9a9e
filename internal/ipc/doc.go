// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. The
// server embeds the daemon while the client decorates calls with dial
// timeouts so CLI commands fail fast when the daemon is offline. The Events
// call is the replay surface: observers pass the index of the last event
// they saw and receive the strict suffix, so reconnecting never duplicates
// or drops progress.
package ipc
