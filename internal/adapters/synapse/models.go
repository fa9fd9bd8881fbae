package synapse

import (
	"encoding/json"

	"challengeutils/internal/core/annotations"
)

// SubmissionStatus is the platform's per-submission status record. The core
// only rewrites Annotations; everything else is carried for the PUT round trip
// (Etag drives the platform's optimistic concurrency)
type SubmissionStatus struct {
	ID             string               `json:"id"`
	Etag           string               `json:"etag,omitempty"`
	Status         string               `json:"status,omitempty"`
	VersionNumber  int64                `json:"statusVersion,omitempty"`
	EntityID       string               `json:"entityId,omitempty"`
	ModifiedOn     string               `json:"modifiedOn,omitempty"`
	Annotations    annotations.TypedSet `json:"annotations,omitempty"`
	SubmissionAnns *json.RawMessage     `json:"submissionAnnotations,omitempty"`
}

// Submission is an evaluation queue entry
type Submission struct {
	ID                   string        `json:"id"`
	EvaluationID         string        `json:"evaluationId"`
	UserID               string        `json:"userId,omitempty"`
	SubmitterAlias       string        `json:"submitterAlias,omitempty"`
	EntityID             string        `json:"entityId,omitempty"`
	VersionNumber        int64         `json:"versionNumber,omitempty"`
	DockerRepositoryName string        `json:"dockerRepositoryName,omitempty"`
	DockerDigest         string        `json:"dockerDigest,omitempty"`
	CreatedOn            string        `json:"createdOn,omitempty"`
	TeamID               string        `json:"teamId,omitempty"`
	Contributors         []Contributor `json:"contributors,omitempty"`
	EntityBundleJSON     string        `json:"entityBundleJSON,omitempty"`
}

// Contributor is one principal on a submission
type Contributor struct {
	PrincipalID string `json:"principalId"`
	CreatedOn   string `json:"createdOn,omitempty"`
}

// SubmissionBundle pairs a submission with its status
type SubmissionBundle struct {
	Submission       Submission       `json:"submission"`
	SubmissionStatus SubmissionStatus `json:"submissionStatus"`
}

// Evaluation is an evaluation queue attached to a project
type Evaluation struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContentSource string `json:"contentSource,omitempty"`
	Status        string `json:"status,omitempty"`
}

// Challenge binds a project to its participant team
type Challenge struct {
	ID                string `json:"id"`
	ProjectID         string `json:"projectId"`
	ParticipantTeamID string `json:"participantTeamId,omitempty"`
}

// ChallengeTeam registers a team to a challenge
type ChallengeTeam struct {
	ID          string `json:"id,omitempty"`
	ChallengeID string `json:"challengeId"`
	TeamID      string `json:"teamId"`
}

// Team is a platform team
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TeamMember is one member row from the teamMembers listing
type TeamMember struct {
	TeamID  string          `json:"teamId"`
	Member  UserGroupHeader `json:"member"`
	IsAdmin bool            `json:"isAdmin,omitempty"`
}

// UserGroupHeader is the compact principal header carried in member rows
type UserGroupHeader struct {
	OwnerID      string `json:"ownerId"`
	UserName     string `json:"userName,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	IsIndividual bool   `json:"isIndividual,omitempty"`
}

// UserProfile is a platform user profile
type UserProfile struct {
	OwnerID   string `json:"ownerId"`
	UserName  string `json:"userName,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// MembershipStatus answers "is this principal in this team"
type MembershipStatus struct {
	TeamID         string `json:"teamId"`
	UserID         string `json:"userId"`
	IsMember       bool   `json:"isMember"`
	CanJoin        bool   `json:"canJoin,omitempty"`
	HasOpenInvite  bool   `json:"hasOpenInvitation,omitempty"`
	HasOpenRequest bool   `json:"hasOpenRequest,omitempty"`
}

// MembershipInvitation invites a principal (by id or email) to a team
type MembershipInvitation struct {
	ID           string `json:"id,omitempty"`
	TeamID       string `json:"teamId"`
	InviteeID    string `json:"inviteeId,omitempty"`
	InviteeEmail string `json:"inviteeEmail,omitempty"`
	Message      string `json:"message,omitempty"`
	CreatedOn    string `json:"createdOn,omitempty"`
}

// Paginated is the platform's standard list envelope
type Paginated[T any] struct {
	TotalNumberOfResults int64 `json:"totalNumberOfResults"`
	Results              []T   `json:"results"`
}

// QueryPage is the tabular result of an evaluation queue query
type QueryPage struct {
	Headers              []string   `json:"headers"`
	Rows                 []QueryRow `json:"rows"`
	TotalNumberOfResults int64      `json:"totalNumberOfResults,omitempty"`
}

// QueryRow is one row of a queue query result
type QueryRow struct {
	Values []json.RawMessage `json:"values"`
}

// Map zips the page headers with a row's values. Scalar values are unquoted;
// anything else is kept as raw JSON text
func (p QueryPage) Map(row QueryRow) map[string]string {
	out := make(map[string]string, len(p.Headers))
	for i, h := range p.Headers {
		if i >= len(row.Values) {
			break
		}
		var s string
		if err := json.Unmarshal(row.Values[i], &s); err != nil {
			s = string(row.Values[i])
		}
		out[h] = s
	}
	return out
}
