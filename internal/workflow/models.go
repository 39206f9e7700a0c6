// Package workflow drives the address-collection interaction: search for
// candidates by postcode and house number, select one, capture personal
// details, and commit the merged record into the address book.
package workflow

import (
	"time"

	"adresboek/internal/domain"
	"adresboek/internal/formstate"
)

// Phase is the workflow state machine position. An error is not a phase: it
// is an overlay on the session, cleared at the start of the next transition
// attempt.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseSearching         Phase = "searching"
	PhaseCandidatesShown   Phase = "candidates_shown"
	PhaseCandidateSelected Phase = "candidate_selected"
)

// Form field names. The search form feeds the lookup; the details form feeds
// the committed record.
const (
	FieldPostcode    = "postcode"
	FieldHouseNumber = "houseNumber"
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
)

// User-facing messages for rejected transitions. Wording is part of the
// contract with rendering surfaces; do not edit casually.
const (
	MsgSearchFieldsMandatory = "Postcode and house number fields are mandatory!"
	MsgNoAddressesFound      = "No addresses found"
	MsgNameFieldsMandatory   = "First name and last name fields mandatory!"
	MsgNoAddressSelected     = "No address selected, try to select an address or find one if you haven't"
	MsgSelectionNotFound     = "Selected address not found"
	MsgLookupFailed          = "Address lookup failed, please try again"
)

// SearchDescriptors returns the search form's field descriptors.
func SearchDescriptors() []formstate.Descriptor {
	return []formstate.Descriptor{
		{Name: FieldPostcode, Placeholder: "Postcode", Required: true, Kind: formstate.KindText},
		{Name: FieldHouseNumber, Placeholder: "House number", Required: true, Kind: formstate.KindText},
	}
}

// DetailDescriptors returns the personal-info form's field descriptors.
func DetailDescriptors() []formstate.Descriptor {
	return []formstate.Descriptor{
		{Name: FieldFirstName, Placeholder: "First name", Required: true, Kind: formstate.KindText},
		{Name: FieldLastName, Placeholder: "Last name", Required: true, Kind: formstate.KindText},
	}
}

// Session is one user's in-progress search/select/commit interaction. The
// controller owns it exclusively; all mutation goes through controller
// transitions, serialized per session.
type Session struct {
	ID         string
	Phase      Phase
	Busy       bool
	Error      string
	Search     *formstate.Store
	Details    *formstate.Store
	Candidates []domain.Candidate
	SelectedID string
	// LookupSeq invalidates in-flight lookups: a completion whose sequence
	// no longer matches the session's is discarded.
	LookupSeq uint64
	CreatedAt time.Time
}

// NewSession builds a fresh session in the Idle phase with empty forms.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Phase:     PhaseIdle,
		Search:    formstate.New(SearchDescriptors(), nil),
		Details:   formstate.New(DetailDescriptors(), nil),
		CreatedAt: time.Now().UTC(),
	}
}

// Snapshot is the read model handed to rendering surfaces and observers.
type Snapshot struct {
	SessionID    string                     `json:"session_id"`
	Phase        Phase                      `json:"phase"`
	Busy         bool                       `json:"busy"`
	Error        string                     `json:"error,omitempty"`
	SearchFields map[string]formstate.Value `json:"search_fields"`
	DetailFields map[string]formstate.Value `json:"detail_fields"`
	Candidates   []domain.Candidate         `json:"candidates"`
	SelectedID   string                     `json:"selected_id,omitempty"`
}

// SnapshotOf projects the session into its read model.
func SnapshotOf(sess *Session) Snapshot {
	return Snapshot{
		SessionID:    sess.ID,
		Phase:        sess.Phase,
		Busy:         sess.Busy,
		Error:        sess.Error,
		SearchFields: sess.Search.Values(),
		DetailFields: sess.Details.Values(),
		Candidates:   append([]domain.Candidate{}, sess.Candidates...),
		SelectedID:   sess.SelectedID,
	}
}
