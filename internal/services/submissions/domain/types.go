// Package domain defines the types and interfaces for the submissions service
package domain

import "time"

// Window is a UTC time range for contributor reports; zero bounds are open
type Window struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether t falls inside the window, inclusive on both ends
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && t.After(w.Until) {
		return false
	}
	return true
}

// AnnotateOptions steers one annotation merge
type AnnotateOptions struct {
	// ToPublic makes a flat payload land in the public domain
	ToPublic bool

	// Force lets incoming keys switch visibility instead of conflicting
	Force bool
}

// AuditEntry records one annotation mutation for the journal
type AuditEntry struct {
	ID           string
	SubmissionID string
	EvaluationID string
	Op           string // "annotate" | "set_acl"
	Keys         []string
	Forced       bool
	CreatedAt    time.Time
}

// DownloadInfo summarizes a submission's artifact metadata
type DownloadInfo struct {
	SubmissionID     string `json:"submission_id"`
	EvaluationID     string `json:"evaluation_id"`
	DockerRepository string `json:"docker_repository,omitempty"`
	DockerDigest     string `json:"docker_digest,omitempty"`
	EntityID         string `json:"entity_id"`
	EntityVersion    int64  `json:"entity_version,omitempty"`
	EntityType       string `json:"entity_type,omitempty"`
	FilePath         string `json:"file_path,omitempty"`
}
