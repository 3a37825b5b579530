package database

import (
	"time"
)

// StoredIdentity is an enrolled person: an identity key bound to the face
// descriptor captured at enrollment. Records are never updated in place.
type StoredIdentity struct {
	ID         int64
	Key        string // unique identity key (register number)
	Name       string
	Descriptor []float32
	Model      string // embedding model that produced the descriptor
	ImagePath  string // stored enrollment photo, empty if not kept
	Attributes map[string]string
	EnrolledAt time.Time
}

// Dim returns the descriptor length.
func (s *StoredIdentity) Dim() int {
	return len(s.Descriptor)
}

// IdentitySummary is the public view of an identity, without the descriptor.
type IdentitySummary struct {
	Key        string            `json:"identity_key"`
	Name       string            `json:"name"`
	ImagePath  string            `json:"image_path,omitempty"`
	Model      string            `json:"model,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	EnrolledAt time.Time         `json:"enrolled_at"`
}

// Summary strips the descriptor for display.
func (s *StoredIdentity) Summary() IdentitySummary {
	return IdentitySummary{
		Key:        s.Key,
		Name:       s.Name,
		ImagePath:  s.ImagePath,
		Model:      s.Model,
		Attributes: s.Attributes,
		EnrolledAt: s.EnrolledAt,
	}
}
