// Package mediaprep implements the upload/prepare collaborator: it turns a
// local video path into the opaque media reference the analysis calls
// consume. Without a configured service it verifies the file and hands back
// a local reference.
package mediaprep
