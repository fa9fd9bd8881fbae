package domain

import (
	"context"

	"challengeutils/internal/adapters/synapse"
	"challengeutils/internal/core/annotations"
)

// RemotePort is the slice of the platform client the service needs; the
// synapse adapter satisfies it, tests fake it
type RemotePort interface {
	GetSubmissionStatus(ctx context.Context, submissionID string) (synapse.SubmissionStatus, error)
	StoreSubmissionStatus(ctx context.Context, st synapse.SubmissionStatus) (synapse.SubmissionStatus, error)
	GetSubmission(ctx context.Context, submissionID string) (synapse.Submission, error)
	SubmissionBundles(ctx context.Context, evaluationID, statusFilter string, fn func(synapse.SubmissionBundle) error) error
	FetchEntityFile(ctx context.Context, entityID string, version int64, dir string) (string, error)
}

// AuditPort records annotation mutations; nil disables journaling
type AuditPort interface {
	Record(ctx context.Context, e AuditEntry) error
}

// AnnotatorPort merges annotations into submission statuses
type AnnotatorPort interface {
	Annotate(ctx context.Context, submissionID string, in annotations.Input, opts AnnotateOptions) (synapse.SubmissionStatus, error)
	AnnotateFile(ctx context.Context, submissionID, path string, opts AnnotateOptions) (synapse.SubmissionStatus, error)
	SetACL(ctx context.Context, submissionID string, keys []string, private bool) (synapse.SubmissionStatus, error)
	SetACLAll(ctx context.Context, evaluationID string, keys []string, private bool, statusFilter string) (int, error)
}

// StatusPort moves submissions between workflow states
type StatusPort interface {
	ChangeStatus(ctx context.Context, submissionID, to string) (synapse.SubmissionStatus, error)
	ChangeAllStatuses(ctx context.Context, evaluationID, from, to string) (int, error)
}

// ReportPort answers read-only questions about queues
type ReportPort interface {
	Contributors(ctx context.Context, evaluationIDs []string, statusFilter string, w Window) ([]string, error)
	Download(ctx context.Context, submissionID, dir string) (DownloadInfo, error)
}
