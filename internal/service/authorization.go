package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"reefops/internal/errors"
	"reefops/internal/models"

	"github.com/google/uuid"
)

// Authorizer evaluates the per-channel send rules at send time and owns the
// buddy-chat fallback for peer-to-peer private messages.
type Authorizer struct {
	scopes ScopeStore
}

func NewAuthorizer(scopes ScopeStore) *Authorizer {
	return &Authorizer{scopes: scopes}
}

// scopeRoster is the resolved membership of one conversation scope.
type scopeRoster struct {
	leaderID string
	members  []string
}

func (r scopeRoster) contains(userID string) bool {
	for _, id := range r.members {
		if id == userID {
			return true
		}
	}
	return false
}

// AuthorizeSend validates that msg's sender may post on msg's channel. For
// peer-to-peer private sends between buddies the message is rerouted into a
// buddy chat in place: Type becomes chat, ScopeID becomes the chat ID
// (created on demand), RecipientID is cleared. Any other violation returns a
// permission error.
func (a *Authorizer) AuthorizeSend(ctx context.Context, msg *models.Message) error {
	family, _, err := msg.Type.Classify()
	if err != nil {
		return errors.NewValidationError("type", err.Error())
	}

	roster, err := a.resolveRoster(ctx, msg.Type, msg.ScopeID)
	if err != nil {
		return err
	}

	switch family {
	case models.FamilyDiscussion:
		if !roster.contains(msg.SenderID) {
			return errors.NewPermissionError(fmt.Sprintf("user %s is not a member of %s %s", msg.SenderID, msg.Type, msg.ScopeID))
		}
		return nil

	case models.FamilyBroadcast:
		if msg.SenderID != roster.leaderID {
			return errors.NewPermissionError(fmt.Sprintf("only the leader may broadcast to %s %s", msg.Type, msg.ScopeID))
		}
		return nil

	case models.FamilyPrivate:
		if !roster.contains(msg.SenderID) {
			return errors.NewPermissionError(fmt.Sprintf("user %s is not a member of %s %s", msg.SenderID, msg.Type, msg.ScopeID))
		}
		if msg.SenderID == roster.leaderID || msg.RecipientID == roster.leaderID {
			return nil
		}
		// Two ordinary members may not use the private channel, but if they
		// are established buddies the send is rerouted into their buddy chat
		// rather than rejected.
		return a.redirectToBuddyChat(ctx, msg)

	default:
		return errors.NewPermissionError(fmt.Sprintf("unhandled message family %q", family))
	}
}

func (a *Authorizer) redirectToBuddyChat(ctx context.Context, msg *models.Message) error {
	buddies, err := a.scopes.AreBuddies(ctx, msg.SenderID, msg.RecipientID)
	if err != nil {
		return errors.ClassifyStoreError("check buddy relationship", err)
	}
	if !buddies {
		return errors.NewPermissionError(fmt.Sprintf("users %s and %s may only message the leader on this channel", msg.SenderID, msg.RecipientID))
	}

	chat, err := a.scopes.FindChatByParticipants(ctx, msg.SenderID, msg.RecipientID)
	if err != nil {
		return errors.ClassifyStoreError("find buddy chat", err)
	}
	if chat == nil {
		participants := []string{msg.SenderID, msg.RecipientID}
		sort.Strings(participants)
		chat = &models.Chat{
			ID:                 uuid.NewString(),
			Participants:       participants,
			ActiveParticipants: participants,
			CreatedAt:          time.Now().UTC(),
		}
		if err := a.scopes.SaveChat(ctx, chat); err != nil {
			return errors.ClassifyStoreError("create buddy chat", err)
		}
	}

	msg.Type = models.TypeChat
	msg.ScopeID = chat.ID
	msg.RecipientID = ""
	return nil
}

// resolveRoster loads the scope's current membership.
func (a *Authorizer) resolveRoster(ctx context.Context, msgType models.MessageType, scopeID string) (scopeRoster, error) {
	_, kind, err := msgType.Classify()
	if err != nil {
		return scopeRoster{}, errors.NewValidationError("type", err.Error())
	}

	switch kind {
	case models.ScopeChat:
		chat, err := a.scopes.GetChat(ctx, scopeID)
		if err != nil {
			return scopeRoster{}, errors.ClassifyStoreError("load chat", err)
		}
		if chat == nil {
			return scopeRoster{}, errors.NewNotFoundError("chat", scopeID)
		}
		return scopeRoster{members: chat.ActiveParticipants}, nil

	case models.ScopeCourse:
		course, err := a.scopes.GetCourse(ctx, scopeID)
		if err != nil {
			return scopeRoster{}, errors.ClassifyStoreError("load course", err)
		}
		if course == nil {
			return scopeRoster{}, errors.NewNotFoundError("course", scopeID)
		}
		return scopeRoster{leaderID: course.InstructorID, members: course.MemberIDs()}, nil

	case models.ScopeTrip:
		trip, err := a.scopes.GetTrip(ctx, scopeID)
		if err != nil {
			return scopeRoster{}, errors.ClassifyStoreError("load trip", err)
		}
		if trip == nil {
			return scopeRoster{}, errors.NewNotFoundError("trip", scopeID)
		}
		return scopeRoster{leaderID: trip.LeaderID, members: trip.MemberIDs()}, nil

	default:
		return scopeRoster{}, errors.NewValidationError("type", fmt.Sprintf("unhandled scope kind %q", kind))
	}
}

// Recipients computes who should be notified about msg: the private
// counterpart, or every scope member except the sender.
func (a *Authorizer) Recipients(ctx context.Context, msg *models.Message) ([]string, error) {
	family, _, err := msg.Type.Classify()
	if err != nil {
		return nil, errors.NewValidationError("type", err.Error())
	}

	if family == models.FamilyPrivate {
		return []string{msg.RecipientID}, nil
	}

	roster, err := a.resolveRoster(ctx, msg.Type, msg.ScopeID)
	if err != nil {
		return nil, err
	}
	recipients := make([]string, 0, len(roster.members))
	for _, id := range roster.members {
		if id != msg.SenderID {
			recipients = append(recipients, id)
		}
	}
	return recipients, nil
}
