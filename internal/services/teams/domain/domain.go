// Package domain defines the types and interfaces for the teams service
package domain

import (
	"context"

	"challengeutils/internal/adapters/synapse"
)

// Member is one team member keyed by principal id
type Member struct {
	OwnerID   string `json:"ownerId"`
	UserName  string `json:"userName,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// RemotePort is the slice of the platform client the teams service needs
type RemotePort interface {
	GetTeam(ctx context.Context, idOrName string) (synapse.Team, error)
	TeamMembers(ctx context.Context, teamID string, fn func(synapse.TeamMember) error) error
	GetMembershipStatus(ctx context.Context, teamID, userID string) (synapse.MembershipStatus, error)
	InviteToTeam(ctx context.Context, invite synapse.MembershipInvitation) (synapse.MembershipInvitation, error)
	GetUserProfile(ctx context.Context, idOrName string) (synapse.UserProfile, error)
	GetEntityChallenge(ctx context.Context, projectID string) (synapse.Challenge, error)
	RegisterChallengeTeam(ctx context.Context, challengeID, teamID string) (synapse.ChallengeTeam, error)
}

// MembersPort answers membership set questions
type MembersPort interface {
	MembersDiff(ctx context.Context, a, b string) ([]Member, error)
	MembersIntersection(ctx context.Context, a, b string) ([]Member, error)
	MembersUnion(ctx context.Context, a, b string) ([]Member, error)
}

// InvitePort manages team membership and challenge registration
type InvitePort interface {
	Invite(ctx context.Context, team, user, email, message string) (*synapse.MembershipInvitation, error)
	Register(ctx context.Context, project, team string) (string, error)
}
