// Package service implements the submissions service: annotation merges,
// visibility toggles, status changes, and queue reports
package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"challengeutils/internal/adapters/synapse"
	"challengeutils/internal/core/annotations"
	perr "challengeutils/internal/platform/errors"
	"challengeutils/internal/platform/logger"
	dom "challengeutils/internal/services/submissions/domain"
)

// Service implements the submissions ports against the remote platform
type Service struct {
	Remote dom.RemotePort
	Audit  dom.AuditPort // nil disables journaling
}

// New constructs a submissions service
func New(remote dom.RemotePort, audit dom.AuditPort) *Service {
	return &Service{Remote: remote, Audit: audit}
}

// Annotate merges annotations into one submission's status and persists it.
// A visibility conflict comes back untouched so callers can branch on it;
// nothing is stored on that path
func (s *Service) Annotate(
	ctx context.Context,
	submissionID string,
	in annotations.Input,
	opts dom.AnnotateOptions,
) (synapse.SubmissionStatus, error) {
	ctx = logger.WithRequest(ctx, "", submissionID)

	st, err := s.Remote.GetSubmissionStatus(ctx, submissionID)
	if err != nil {
		return synapse.SubmissionStatus{}, err
	}
	merged, err := annotations.Update(st.Annotations, in, annotations.UpdateOptions{
		ToPublic: opts.ToPublic,
		Force:    opts.Force,
	})
	if err != nil {
		return synapse.SubmissionStatus{}, err
	}
	st.Annotations = merged

	stored, err := s.Remote.StoreSubmissionStatus(ctx, st)
	if err != nil {
		return synapse.SubmissionStatus{}, err
	}
	logger.C(ctx).Info().Bool("forced", opts.Force).Msg("submission annotated")
	// the status record carries no queue id, so the journal leaves
	// evaluation_id empty on the single-submission path
	s.audit(ctx, dom.AuditEntry{
		SubmissionID: submissionID,
		Op:           "annotate",
		Keys:         annotationKeys(merged),
		Forced:       opts.Force,
	})
	return stored, nil
}

// AnnotateFile merges annotations from a JSON or YAML document on disk
func (s *Service) AnnotateFile(
	ctx context.Context,
	submissionID, path string,
	opts dom.AnnotateOptions,
) (synapse.SubmissionStatus, error) {
	in, err := ReadInputFile(path)
	if err != nil {
		return synapse.SubmissionStatus{}, err
	}
	return s.Annotate(ctx, submissionID, in, opts)
}

// SetACL flips the visibility flag of the named keys on one submission.
// Unknown keys are ignored; values never change
func (s *Service) SetACL(
	ctx context.Context,
	submissionID string,
	keys []string,
	private bool,
) (synapse.SubmissionStatus, error) {
	ctx = logger.WithRequest(ctx, "", submissionID)

	st, err := s.Remote.GetSubmissionStatus(ctx, submissionID)
	if err != nil {
		return synapse.SubmissionStatus{}, err
	}
	st.Annotations = annotations.SetVisibility(st.Annotations, keys, private)

	stored, err := s.Remote.StoreSubmissionStatus(ctx, st)
	if err != nil {
		return synapse.SubmissionStatus{}, err
	}
	s.audit(ctx, dom.AuditEntry{
		SubmissionID: submissionID,
		Op:           "set_acl",
		Keys:         keys,
	})
	return stored, nil
}

// SetACLAll applies the visibility toggle to every submission of a queue and
// returns how many were updated. Each submission is independent; a failure
// stops the walk and reports which submission broke
func (s *Service) SetACLAll(
	ctx context.Context,
	evaluationID string,
	keys []string,
	private bool,
	statusFilter string,
) (int, error) {
	if statusFilter == "ALL" {
		statusFilter = ""
	}
	updated := 0
	err := s.Remote.SubmissionBundles(ctx, evaluationID, statusFilter, func(b synapse.SubmissionBundle) error {
		st := b.SubmissionStatus
		st.Annotations = annotations.SetVisibility(st.Annotations, keys, private)
		if _, err := s.Remote.StoreSubmissionStatus(ctx, st); err != nil {
			return perr.WithFieldChain(err, b.Submission.ID)
		}
		updated++
		return nil
	})
	if err != nil {
		return updated, err
	}
	logger.Get().Info().
		Str("evaluation_id", evaluationID).
		Int("updated", updated).
		Bool("private", private).
		Msg("queue annotation acl updated")
	s.audit(ctx, dom.AuditEntry{
		EvaluationID: evaluationID,
		Op:           "set_acl",
		Keys:         keys,
	})
	return updated, nil
}

// ChangeStatus moves one submission to a new workflow state
func (s *Service) ChangeStatus(ctx context.Context, submissionID, to string) (synapse.SubmissionStatus, error) {
	st, err := s.Remote.GetSubmissionStatus(ctx, submissionID)
	if err != nil {
		return synapse.SubmissionStatus{}, err
	}
	st.Status = to
	return s.Remote.StoreSubmissionStatus(ctx, st)
}

// ChangeAllStatuses moves every submission currently in `from` to `to`,
// the bulk rescoring pattern (SCORED back to VALIDATED and the like)
func (s *Service) ChangeAllStatuses(ctx context.Context, evaluationID, from, to string) (int, error) {
	changed := 0
	err := s.Remote.SubmissionBundles(ctx, evaluationID, from, func(b synapse.SubmissionBundle) error {
		st := b.SubmissionStatus
		st.Status = to
		if _, err := s.Remote.StoreSubmissionStatus(ctx, st); err != nil {
			return perr.WithFieldChain(err, b.Submission.ID)
		}
		changed++
		return nil
	})
	return changed, err
}

// Contributors collects the distinct contributor principal ids across queues,
// keeping only submissions created inside the window. Result is sorted
func (s *Service) Contributors(
	ctx context.Context,
	evaluationIDs []string,
	statusFilter string,
	w dom.Window,
) ([]string, error) {
	seen := map[string]struct{}{}
	for _, evalID := range evaluationIDs {
		err := s.Remote.SubmissionBundles(ctx, evalID, statusFilter, func(b synapse.SubmissionBundle) error {
			created, err := parseCreatedOn(b.Submission.CreatedOn)
			if err != nil {
				return err
			}
			if !w.Contains(created) {
				return nil
			}
			for _, c := range b.Submission.Contributors {
				seen[c.PrincipalID] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Download summarizes a submission's artifact metadata and, when dir is
// non-empty and the submitted entity is a file, fetches its file handle into
// dir. Docker submissions carry no file; their metadata alone comes back
func (s *Service) Download(ctx context.Context, submissionID, dir string) (dom.DownloadInfo, error) {
	sub, err := s.Remote.GetSubmission(ctx, submissionID)
	if err != nil {
		return dom.DownloadInfo{}, err
	}
	info := dom.DownloadInfo{
		SubmissionID:     sub.ID,
		EvaluationID:     sub.EvaluationID,
		DockerRepository: sub.DockerRepositoryName,
		DockerDigest:     sub.DockerDigest,
		EntityID:         sub.EntityID,
		EntityVersion:    sub.VersionNumber,
	}
	if sub.EntityBundleJSON != "" {
		var bundle struct {
			Entity struct {
				ID            string `json:"id"`
				VersionNumber int64  `json:"versionNumber"`
				ConcreteType  string `json:"concreteType"`
			} `json:"entity"`
		}
		if err := json.Unmarshal([]byte(sub.EntityBundleJSON), &bundle); err != nil {
			return dom.DownloadInfo{}, perr.Wrap(err, perr.ErrorCodeJSON, "submission entity bundle")
		}
		if bundle.Entity.ID != "" {
			info.EntityID = bundle.Entity.ID
			info.EntityVersion = bundle.Entity.VersionNumber
			info.EntityType = bundle.Entity.ConcreteType
		}
	}
	if dir != "" && info.EntityID != "" && strings.HasSuffix(info.EntityType, "FileEntity") {
		path, err := s.Remote.FetchEntityFile(ctx, info.EntityID, info.EntityVersion, dir)
		if err != nil {
			return dom.DownloadInfo{}, err
		}
		info.FilePath = path
	}
	return info, nil
}

// audit is best-effort: a journal failure never fails the mutation that
// already landed on the platform
func (s *Service) audit(ctx context.Context, e dom.AuditEntry) {
	if s.Audit == nil {
		return
	}
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	if err := s.Audit.Record(ctx, e); err != nil {
		logger.C(ctx).Warn().Err(err).Str("op", e.Op).Msg("audit record failed")
	}
}

// parseCreatedOn handles the platform's RFC3339-with-millis timestamps
func parseCreatedOn(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, perr.InvalidArgf("bad createdOn %q", s)
	}
	return t.UTC(), nil
}

// annotationKeys lists the keys of a typed set, sorted, for the journal
func annotationKeys(ts annotations.TypedSet) []string {
	priv := annotations.Extract(ts, true)
	pub := annotations.Extract(ts, false)
	out := make([]string, 0, len(priv)+len(pub))
	for k := range priv {
		out = append(out, k)
	}
	for k := range pub {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
