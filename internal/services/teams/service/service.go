// Package service implements team membership algebra, invitations, and
// challenge registration
package service

import (
	"context"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"challengeutils/internal/adapters/synapse"
	perr "challengeutils/internal/platform/errors"
	"challengeutils/internal/platform/logger"
	dom "challengeutils/internal/services/teams/domain"
)

// Service implements the teams ports against the remote platform
type Service struct {
	Remote dom.RemotePort
	coll   *collate.Collator
}

// New constructs a teams service
func New(remote dom.RemotePort) *Service {
	return &Service{
		Remote: remote,
		coll:   collate.New(language.English, collate.IgnoreCase),
	}
}

// memberSet loads every member of a team keyed by principal id
func (s *Service) memberSet(ctx context.Context, team string) (map[string]dom.Member, error) {
	t, err := s.Remote.GetTeam(ctx, team)
	if err != nil {
		return nil, err
	}
	out := map[string]dom.Member{}
	err = s.Remote.TeamMembers(ctx, t.ID, func(m synapse.TeamMember) error {
		out[m.Member.OwnerID] = dom.Member{
			OwnerID:   m.Member.OwnerID,
			UserName:  m.Member.UserName,
			FirstName: m.Member.FirstName,
			LastName:  m.Member.LastName,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MembersDiff returns members of a that are not in b
func (s *Service) MembersDiff(ctx context.Context, a, b string) ([]dom.Member, error) {
	setA, err := s.memberSet(ctx, a)
	if err != nil {
		return nil, err
	}
	setB, err := s.memberSet(ctx, b)
	if err != nil {
		return nil, err
	}
	for id := range setB {
		delete(setA, id)
	}
	return s.sorted(setA), nil
}

// MembersIntersection returns members belonging to both teams
func (s *Service) MembersIntersection(ctx context.Context, a, b string) ([]dom.Member, error) {
	setA, err := s.memberSet(ctx, a)
	if err != nil {
		return nil, err
	}
	setB, err := s.memberSet(ctx, b)
	if err != nil {
		return nil, err
	}
	for id := range setA {
		if _, ok := setB[id]; !ok {
			delete(setA, id)
		}
	}
	return s.sorted(setA), nil
}

// MembersUnion returns members belonging to either team
func (s *Service) MembersUnion(ctx context.Context, a, b string) ([]dom.Member, error) {
	setA, err := s.memberSet(ctx, a)
	if err != nil {
		return nil, err
	}
	setB, err := s.memberSet(ctx, b)
	if err != nil {
		return nil, err
	}
	for id, m := range setB {
		setA[id] = m
	}
	return s.sorted(setA), nil
}

// sorted orders members by username with case-insensitive collation so CLI
// output is stable across runs
func (s *Service) sorted(set map[string]dom.Member) []dom.Member {
	out := make([]dom.Member, 0, len(set))
	for _, m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := s.coll.CompareString(out[i].UserName, out[j].UserName); c != 0 {
			return c < 0
		}
		return out[i].OwnerID < out[j].OwnerID
	})
	return out
}

// Invite invites a principal to a team by username or by email, exactly one
// of which must be set. Existing members are skipped and get a nil invite
func (s *Service) Invite(ctx context.Context, team, user, email, message string) (*synapse.MembershipInvitation, error) {
	if (user == "") == (email == "") {
		return nil, perr.InvalidArgf("specify exactly one of user or email")
	}
	t, err := s.Remote.GetTeam(ctx, team)
	if err != nil {
		return nil, err
	}

	invite := synapse.MembershipInvitation{TeamID: t.ID, Message: message}
	if email != "" {
		invite.InviteeEmail = email
	} else {
		profile, err := s.Remote.GetUserProfile(ctx, user)
		if err != nil {
			return nil, err
		}
		status, err := s.Remote.GetMembershipStatus(ctx, t.ID, profile.OwnerID)
		if err != nil {
			return nil, err
		}
		if status.IsMember {
			logger.C(ctx).Info().
				Str("team_id", t.ID).
				Str("user_id", profile.OwnerID).
				Msg("already a member, skipping invite")
			return nil, nil
		}
		invite.InviteeID = profile.OwnerID
	}

	sent, err := s.Remote.InviteToTeam(ctx, invite)
	if err != nil {
		return nil, err
	}
	return &sent, nil
}

// Register registers a team to a project's challenge and returns the team id
func (s *Service) Register(ctx context.Context, project, team string) (string, error) {
	challenge, err := s.Remote.GetEntityChallenge(ctx, project)
	if err != nil {
		return "", err
	}
	t, err := s.Remote.GetTeam(ctx, team)
	if err != nil {
		return "", err
	}
	registered, err := s.Remote.RegisterChallengeTeam(ctx, challenge.ID, t.ID)
	if err != nil {
		return "", err
	}
	return registered.TeamID, nil
}
