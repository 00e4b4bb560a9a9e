// Package services holds the error taxonomy and context plumbing shared by
// the external collaborator clients (media preparation, story analysis,
// audio generation) and the pipeline that consumes them.
package services
