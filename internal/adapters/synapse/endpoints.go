package synapse

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	perr "challengeutils/internal/platform/errors"
)

const pageSize = 50

// GetSubmissionStatus fetches the status record for a submission
func (c *Client) GetSubmissionStatus(ctx context.Context, submissionID string) (SubmissionStatus, error) {
	var out SubmissionStatus
	err := c.Do(ctx, http.MethodGet, "/evaluation/submission/"+submissionID+"/status", nil, &out)
	return out, err
}

// StoreSubmissionStatus persists a mutated status record. The Etag from the
// fetch must still be current or the platform answers 412
func (c *Client) StoreSubmissionStatus(ctx context.Context, st SubmissionStatus) (SubmissionStatus, error) {
	var out SubmissionStatus
	err := c.Do(ctx, http.MethodPut, "/evaluation/submission/"+st.ID+"/status", st, &out)
	return out, err
}

// GetSubmission fetches a submission record
func (c *Client) GetSubmission(ctx context.Context, submissionID string) (Submission, error) {
	var out Submission
	err := c.Do(ctx, http.MethodGet, "/evaluation/submission/"+submissionID, nil, &out)
	return out, err
}

// SubmissionBundles walks every (submission, status) pair of an evaluation
// queue, calling fn per bundle. statusFilter narrows to one status; empty
// means all. Iteration stops on fn error or the final short page
func (c *Client) SubmissionBundles(
	ctx context.Context,
	evaluationID, statusFilter string,
	fn func(SubmissionBundle) error,
) error {
	offset := int64(0)
	for {
		path := fmt.Sprintf("/evaluation/%s/submission/bundle/all?limit=%d&offset=%d",
			evaluationID, pageSize, offset)
		if statusFilter != "" {
			path += "&status=" + url.QueryEscape(statusFilter)
		}
		var page Paginated[SubmissionBundle]
		if err := c.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return err
		}
		for _, b := range page.Results {
			if err := fn(b); err != nil {
				return err
			}
		}
		if int64(len(page.Results)) < pageSize {
			return nil
		}
		offset += int64(len(page.Results))
	}
}

// QueueQuery runs one page of an evaluation queue query
// (e.g. "select * from evaluation_9614112 limit 20 offset 0")
func (c *Client) QueueQuery(ctx context.Context, query string) (QueryPage, error) {
	var out QueryPage
	path := "/evaluation/submission/query?query=" + url.QueryEscape(query)
	err := c.Do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// GetEntityChallenge resolves the challenge object of a project
func (c *Client) GetEntityChallenge(ctx context.Context, projectID string) (Challenge, error) {
	var out Challenge
	err := c.Do(ctx, http.MethodGet, "/entity/"+projectID+"/challenge", nil, &out)
	return out, err
}

// RegisterChallengeTeam registers a team to a challenge
func (c *Client) RegisterChallengeTeam(ctx context.Context, challengeID, teamID string) (ChallengeTeam, error) {
	var out ChallengeTeam
	body := ChallengeTeam{ChallengeID: challengeID, TeamID: teamID}
	err := c.Do(ctx, http.MethodPost, "/challenge/"+challengeID+"/challengeTeam", body, &out)
	return out, err
}

// GetTeam resolves a team by numeric id or by exact name
func (c *Client) GetTeam(ctx context.Context, idOrName string) (Team, error) {
	if isNumeric(idOrName) {
		var out Team
		err := c.Do(ctx, http.MethodGet, "/team/"+idOrName, nil, &out)
		return out, err
	}
	var page Paginated[Team]
	path := "/teams?fragment=" + url.QueryEscape(idOrName)
	if err := c.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return Team{}, err
	}
	for _, t := range page.Results {
		if t.Name == idOrName {
			return t, nil
		}
	}
	return Team{}, perr.NotFoundf("no team named %q", idOrName)
}

// TeamMembers walks every member of a team, calling fn per member row
func (c *Client) TeamMembers(ctx context.Context, teamID string, fn func(TeamMember) error) error {
	offset := int64(0)
	for {
		path := fmt.Sprintf("/teamMembers/%s?limit=%d&offset=%d", teamID, pageSize, offset)
		var page Paginated[TeamMember]
		if err := c.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return err
		}
		for _, m := range page.Results {
			if err := fn(m); err != nil {
				return err
			}
		}
		if int64(len(page.Results)) < pageSize {
			return nil
		}
		offset += int64(len(page.Results))
	}
}

// GetMembershipStatus answers whether a principal belongs to a team
func (c *Client) GetMembershipStatus(ctx context.Context, teamID, userID string) (MembershipStatus, error) {
	var out MembershipStatus
	path := fmt.Sprintf("/team/%s/member/%s/membershipStatus", teamID, userID)
	err := c.Do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// InviteToTeam posts a membership invitation
func (c *Client) InviteToTeam(ctx context.Context, invite MembershipInvitation) (MembershipInvitation, error) {
	var out MembershipInvitation
	err := c.Do(ctx, http.MethodPost, "/membershipInvitation", invite, &out)
	return out, err
}

// GetUserProfile resolves a profile by numeric principal id or by username
func (c *Client) GetUserProfile(ctx context.Context, idOrName string) (UserProfile, error) {
	var out UserProfile
	if isNumeric(idOrName) {
		err := c.Do(ctx, http.MethodGet, "/userProfile/"+idOrName, nil, &out)
		return out, err
	}
	var page struct {
		Children []UserGroupHeader `json:"children"`
	}
	path := "/userGroupHeaders?prefix=" + url.QueryEscape(idOrName)
	if err := c.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return UserProfile{}, err
	}
	for _, h := range page.Children {
		if h.UserName == idOrName {
			return UserProfile{
				OwnerID:   h.OwnerID,
				UserName:  h.UserName,
				FirstName: h.FirstName,
				LastName:  h.LastName,
			}, nil
		}
	}
	return UserProfile{}, perr.NotFoundf("no user named %q", idOrName)
}

// EvaluationsByContentSource walks the evaluation queues of a project
func (c *Client) EvaluationsByContentSource(ctx context.Context, projectID string, fn func(Evaluation) error) error {
	offset := int64(0)
	for {
		path := fmt.Sprintf("/entity/%s/evaluation?limit=%d&offset=%d", projectID, pageSize, offset)
		var page Paginated[Evaluation]
		if err := c.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return err
		}
		for _, e := range page.Results {
			if err := fn(e); err != nil {
				return err
			}
		}
		if int64(len(page.Results)) < pageSize {
			return nil
		}
		offset += int64(len(page.Results))
	}
}

// SubmitterName resolves a submitter id to a username, falling back to the
// team name when the id is not an individual
func (c *Client) SubmitterName(ctx context.Context, submitterID string) (string, error) {
	profile, err := c.GetUserProfile(ctx, submitterID)
	if err == nil {
		return profile.UserName, nil
	}
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		return "", err
	}
	team, err := c.GetTeam(ctx, submitterID)
	if err != nil {
		return "", err
	}
	return team.Name, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
