package models

import "time"

// ArtifactType classifies what kind of output an artifact is.
type ArtifactType string

const (
	// ArtifactFile is a produced or modified source file.
	ArtifactFile ArtifactType = "file"
	// ArtifactDocument is prose output such as a design note.
	ArtifactDocument ArtifactType = "document"
	// ArtifactData is structured data output.
	ArtifactData ArtifactType = "data"
	// ArtifactReport is an analysis or status report.
	ArtifactReport ArtifactType = "report"
	// ArtifactConfig is a configuration file.
	ArtifactConfig ArtifactType = "config"
	// ArtifactSchema is a schema definition.
	ArtifactSchema ArtifactType = "schema"
	// ArtifactOther covers anything not in the above categories.
	ArtifactOther ArtifactType = "other"
)

// Valid returns true if the type is a known value.
func (t ArtifactType) Valid() bool {
	switch t {
	case ArtifactFile, ArtifactDocument, ArtifactData, ArtifactReport,
		ArtifactConfig, ArtifactSchema, ArtifactOther:
		return true
	default:
		return false
	}
}

// Artifact is a stored output produced by an agent during task execution.
type Artifact struct {
	// ID is the unique identifier for this artifact.
	ID string `json:"id"`
	// Name is the human-readable artifact name.
	Name string `json:"name"`
	// Type classifies the artifact.
	Type ArtifactType `json:"type"`
	// Path is the filesystem location, if the artifact lives on disk.
	Path string `json:"path,omitempty"`
	// Content is the inline body, if the artifact is stored in memory.
	Content string `json:"content,omitempty"`
	// Summary is an optional short description of the artifact.
	Summary string `json:"summary,omitempty"`
	// Size is the artifact size in bytes, when known.
	Size int64 `json:"size,omitempty"`
	// MimeType is the artifact media type, when known.
	MimeType string `json:"mime_type,omitempty"`
	// CreatedBy is the ID of the task that produced the artifact.
	CreatedBy string `json:"created_by"`
	// CreatedAt is when the artifact was first stored.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the artifact was last modified.
	UpdatedAt time.Time `json:"updated_at"`
	// Tags are free-form labels used for search.
	Tags []string `json:"tags,omitempty"`
	// Dependencies lists IDs of artifacts this one derives from.
	Dependencies []string `json:"dependencies,omitempty"`
	// Metadata carries provider- or tool-specific key/value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Valid returns true if the artifact satisfies its structural invariant:
// a known type and at least one of Path or Content populated.
func (a *Artifact) Valid() bool {
	if a == nil || !a.Type.Valid() {
		return false
	}
	return a.Path != "" || a.Content != ""
}

// Clone returns a deep copy of the artifact.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	out := *a
	out.Tags = append([]string(nil), a.Tags...)
	out.Dependencies = append([]string(nil), a.Dependencies...)
	if a.Metadata != nil {
		out.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
