package services

// MediaRef is the opaque handle the upload/prepare collaborator returns for
// a source video. Downstream collaborators treat it as an identifier only.
type MediaRef string

func (r MediaRef) String() string { return string(r) }
