package domain

import "time"

// ArtifactFields is the fixed column order of the exported table
var ArtifactFields = []string{"name", "phone", "email", "website", "address", "rating", "source"}

// Artifact is a generated downloadable export tied to a job
type Artifact struct {
	JobID      string
	Filename   string
	Content    []byte
	Location   string // backing storage reference
	TotalLeads int
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the artifact is past its lifetime at now
func (a *Artifact) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// Clone returns a copy that shares no memory with a
func (a *Artifact) Clone() *Artifact {
	c := *a
	if a.Content != nil {
		c.Content = append([]byte(nil), a.Content...)
	}
	return &c
}
