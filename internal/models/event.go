package models

import "fmt"

// Event types carried by NotificationEvent.Type.
const (
	EventCreateProposal            = "createProposal"
	EventProposalPass              = "proposalPass"
	EventProposalPassed            = "proposalPassed"
	EventCreateItemProposal        = "createItemProposal"
	EventItemProposalPass          = "itemProposalPass"
	EventProjectPublished          = "projectPublished"
	EventProposalSupported         = "proposalSupported"
	EventItemProposalSupported     = "itemProposalSupported"
	EventItemProposalPassed        = "itemProposalPassed"
	EventItemProposalBecameLeading = "itemProposalBecameLeading"
	EventItemProposalLostLeading   = "itemProposalLostLeading"
)

// EventTypes lists every valid event type.
var EventTypes = []string{
	EventCreateProposal,
	EventProposalPass,
	EventProposalPassed,
	EventCreateItemProposal,
	EventItemProposalPass,
	EventProjectPublished,
	EventProposalSupported,
	EventItemProposalSupported,
	EventItemProposalPassed,
	EventItemProposalBecameLeading,
	EventItemProposalLostLeading,
}

// multiUserEvents resolve their recipients dynamically instead of carrying
// an explicit target user.
var multiUserEvents = map[string]bool{
	EventCreateItemProposal:        true,
	EventItemProposalSupported:     true,
	EventItemProposalBecameLeading: true,
	EventItemProposalLostLeading:   true,
}

// NotificationEvent is the payload of a queue job. Build instances through
// the typed constructors below; Validate rejects combinations a constructor
// could not have produced.
type NotificationEvent struct {
	UserID         string  `json:"userId,omitempty"`
	ProjectID      string  `json:"projectId"`
	ProposalID     string  `json:"proposalId,omitempty"`
	ItemProposalID string  `json:"itemProposalId,omitempty"`
	Reward         float64 `json:"reward,omitempty"`
	VoterID        string  `json:"voterId,omitempty"`
	Type           string  `json:"type"`
}

// MultiUser reports whether recipients must be resolved dynamically.
func (e NotificationEvent) MultiUser() bool {
	return multiUserEvents[e.Type]
}

// Validate checks the field/type pairing.
func (e NotificationEvent) Validate() error {
	if e.ProjectID == "" {
		return fmt.Errorf("notification event %q: missing project id", e.Type)
	}
	valid := false
	for _, t := range EventTypes {
		if e.Type == t {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown notification event type %q", e.Type)
	}
	if e.MultiUser() {
		if e.ItemProposalID == "" {
			return fmt.Errorf("notification event %q: missing item proposal id", e.Type)
		}
	} else if e.UserID == "" {
		return fmt.Errorf("notification event %q: missing target user id", e.Type)
	}
	return nil
}

// NewProposalEvent builds a single-recipient event about a top-level
// proposal (createProposal, proposalPass, proposalPassed,
// proposalSupported).
func NewProposalEvent(eventType, userID, projectID, proposalID string, reward float64) NotificationEvent {
	return NotificationEvent{
		Type:       eventType,
		UserID:     userID,
		ProjectID:  projectID,
		ProposalID: proposalID,
		Reward:     reward,
	}
}

// NewProjectPublishedEvent targets the project owner directly.
func NewProjectPublishedEvent(userID, projectID string) NotificationEvent {
	return NotificationEvent{Type: EventProjectPublished, UserID: userID, ProjectID: projectID}
}

// NewItemProposalEvent builds a single-recipient item-proposal event
// (itemProposalPass, itemProposalPassed).
func NewItemProposalEvent(eventType, userID, projectID, itemProposalID string, reward float64) NotificationEvent {
	return NotificationEvent{
		Type:           eventType,
		UserID:         userID,
		ProjectID:      projectID,
		ItemProposalID: itemProposalID,
		Reward:         reward,
	}
}

// NewCreateItemProposalEvent fans out to the project owner.
func NewCreateItemProposalEvent(projectID, itemProposalID string) NotificationEvent {
	return NotificationEvent{Type: EventCreateItemProposal, ProjectID: projectID, ItemProposalID: itemProposalID}
}

// NewItemProposalFanoutEvent builds a multi-recipient item-proposal event
// (itemProposalSupported, itemProposalBecameLeading,
// itemProposalLostLeading). VoterID records who triggered it.
func NewItemProposalFanoutEvent(eventType, projectID, itemProposalID, voterID string) NotificationEvent {
	return NotificationEvent{
		Type:           eventType,
		ProjectID:      projectID,
		ItemProposalID: itemProposalID,
		VoterID:        voterID,
	}
}
