package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"adresboek/internal/addressbook"
	"adresboek/internal/audit"
	"adresboek/internal/domain"
	"adresboek/internal/lookup"
	"adresboek/internal/lookup/mocks"
	dErrors "adresboek/pkg/domain-errors"
)

// =============================================================================
// Workflow Controller Test Suite
// =============================================================================
// Justification for unit tests: the controller holds the entire transition
// table (validation gating, lookup outcome handling, selection and commit
// ordering, busy suppression, stale-lookup discard). Exercising these paths
// over HTTP would couple every case to transport concerns.

type ControllerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	gateway    *mocks.MockGateway
	sessions   *InMemorySessionStore
	book       *addressbook.InMemoryStore
	auditStore *audit.InMemoryStore
	controller *Controller
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gateway = mocks.NewMockGateway(s.ctrl)
	s.sessions = NewInMemorySessionStore()
	s.book = addressbook.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := audit.NewPublisher(s.auditStore, logger)
	s.controller = NewController(s.sessions, s.book, s.gateway, logger, nil, publisher)
}

func (s *ControllerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ControllerSuite) startSession() Snapshot {
	snap, err := s.controller.StartSession(context.Background())
	s.Require().NoError(err)
	return snap
}

func (s *ControllerSuite) setSearch(id, postcode, houseNumber string) {
	ctx := context.Background()
	_, err := s.controller.SetSearchField(ctx, id, FieldPostcode, postcode)
	s.Require().NoError(err)
	_, err = s.controller.SetSearchField(ctx, id, FieldHouseNumber, houseNumber)
	s.Require().NoError(err)
}

func (s *ControllerSuite) setDetails(id, firstName, lastName string) {
	ctx := context.Background()
	_, err := s.controller.SetDetailsField(ctx, id, FieldFirstName, firstName)
	s.Require().NoError(err)
	_, err = s.controller.SetDetailsField(ctx, id, FieldLastName, lastName)
	s.Require().NoError(err)
}

func twoCandidates() []domain.Candidate {
	return []domain.Candidate{
		{ID: "cand-1", Street: "Keizersgracht", City: "Amsterdam", Postcode: "1015CJ"},
		{ID: "cand-2", Street: "Herengracht", City: "Amsterdam", Postcode: "1015CJ"},
	}
}

// =============================================================================
// Session Lifecycle
// =============================================================================

func (s *ControllerSuite) TestStartSession() {
	snap := s.startSession()

	s.NotEmpty(snap.SessionID)
	s.Equal(PhaseIdle, snap.Phase)
	s.False(snap.Busy)
	s.Empty(snap.Error)
	s.Empty(snap.Candidates)
}

func (s *ControllerSuite) TestUnknownSession() {
	ctx := context.Background()

	_, err := s.controller.Snapshot(ctx, "no-such-session")
	s.Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	_, err = s.controller.SubmitSearch(ctx, "no-such-session")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

// =============================================================================
// Search Submission
// =============================================================================

func (s *ControllerSuite) TestSubmitSearch() {
	ctx := context.Background()

	s.Run("blank fields are rejected without calling the gateway", func() {
		snap := s.startSession()
		s.setSearch(snap.SessionID, "  ", "")

		// No gateway expectation registered: an unexpected Search call fails
		// the test.
		snap, err := s.controller.SubmitSearch(ctx, snap.SessionID)
		s.NoError(err)
		s.Equal(MsgSearchFieldsMandatory, snap.Error)
		s.Equal(PhaseIdle, snap.Phase)
		s.False(snap.Busy)
	})

	s.Run("candidates are stamped with the searched house number", func() {
		snap := s.startSession()
		s.setSearch(snap.SessionID, "1015CJ", "246")

		s.gateway.EXPECT().
			Search(gomock.Any(), "1015CJ", "246").
			Return(twoCandidates(), nil)

		snap, err := s.controller.SubmitSearch(ctx, snap.SessionID)
		s.NoError(err)
		s.Equal(PhaseCandidatesShown, snap.Phase)
		s.Empty(snap.Error)
		s.Require().Len(snap.Candidates, 2)
		s.Equal("246", snap.Candidates[0].HouseNumber)
		s.Equal("246", snap.Candidates[1].HouseNumber)
	})

	s.Run("empty result set is reported and returns to idle", func() {
		snap := s.startSession()
		s.setSearch(snap.SessionID, "9999ZZ", "1")

		s.gateway.EXPECT().
			Search(gomock.Any(), "9999ZZ", "1").
			Return(nil, nil)

		snap, err := s.controller.SubmitSearch(ctx, snap.SessionID)
		s.NoError(err)
		s.Equal(MsgNoAddressesFound, snap.Error)
		s.Equal(PhaseIdle, snap.Phase)
		s.Empty(snap.Candidates)
	})

	s.Run("service-reported error is surfaced verbatim", func() {
		snap := s.startSession()
		s.setSearch(snap.SessionID, "1015CJ", "246")

		s.gateway.EXPECT().
			Search(gomock.Any(), "1015CJ", "246").
			Return(nil, lookup.Error{Message: "postcode is not valid"})

		snap, err := s.controller.SubmitSearch(ctx, snap.SessionID)
		s.NoError(err)
		s.Equal("postcode is not valid", snap.Error)
		s.Equal(PhaseIdle, snap.Phase)
	})

	s.Run("transport failure surfaces the generic lookup message", func() {
		snap := s.startSession()
		s.setSearch(snap.SessionID, "1015CJ", "246")

		s.gateway.EXPECT().
			Search(gomock.Any(), "1015CJ", "246").
			Return(nil, errors.New("dial tcp: connection refused"))

		snap, err := s.controller.SubmitSearch(ctx, snap.SessionID)
		s.NoError(err)
		s.Equal(MsgLookupFailed, snap.Error)
		s.Equal(PhaseIdle, snap.Phase)
	})

	s.Run("new search replaces previous candidates and selection", func() {
		snap := s.startSession()
		s.setSearch(snap.SessionID, "1015CJ", "246")

		s.gateway.EXPECT().
			Search(gomock.Any(), "1015CJ", "246").
			Return(twoCandidates(), nil)
		_, err := s.controller.SubmitSearch(ctx, snap.SessionID)
		s.Require().NoError(err)
		_, err = s.controller.SelectCandidate(ctx, snap.SessionID, "cand-1")
		s.Require().NoError(err)

		s.setSearch(snap.SessionID, "2511CV", "70")
		s.gateway.EXPECT().
			Search(gomock.Any(), "2511CV", "70").
			Return([]domain.Candidate{{ID: "cand-9", Street: "Binnenhof", City: "Den Haag", Postcode: "2511CV"}}, nil)

		snap, err = s.controller.SubmitSearch(ctx, snap.SessionID)
		s.NoError(err)
		s.Require().Len(snap.Candidates, 1)
		s.Equal("cand-9", snap.Candidates[0].ID)
		s.Empty(snap.SelectedID)
	})
}

// =============================================================================
// Busy Suppression and Stale Lookups
// =============================================================================

func (s *ControllerSuite) TestBusyLookup() {
	ctx := context.Background()

	s.Run("submits while a lookup is in flight are ignored", func() {
		snap := s.startSession()
		s.setSearch(snap.SessionID, "1015CJ", "246")

		entered := make(chan struct{})
		release := make(chan struct{})
		s.gateway.EXPECT().
			Search(gomock.Any(), "1015CJ", "246").
			DoAndReturn(func(context.Context, string, string) ([]domain.Candidate, error) {
				close(entered)
				<-release
				return twoCandidates(), nil
			}).
			Times(1)

		done := make(chan Snapshot, 1)
		go func() {
			result, err := s.controller.SubmitSearch(ctx, snap.SessionID)
			s.NoError(err)
			done <- result
		}()
		<-entered

		// The second submit must return immediately, busy, without a second
		// gateway call.
		busySnap, err := s.controller.SubmitSearch(ctx, snap.SessionID)
		s.NoError(err)
		s.True(busySnap.Busy)
		s.Equal(PhaseSearching, busySnap.Phase)

		close(release)
		result := <-done
		s.Equal(PhaseCandidatesShown, result.Phase)
		s.Len(result.Candidates, 2)
	})

	s.Run("clear during lookup discards the late result", func() {
		snap := s.startSession()
		s.setSearch(snap.SessionID, "1015CJ", "246")

		entered := make(chan struct{})
		release := make(chan struct{})
		s.gateway.EXPECT().
			Search(gomock.Any(), "1015CJ", "246").
			DoAndReturn(func(context.Context, string, string) ([]domain.Candidate, error) {
				close(entered)
				<-release
				return twoCandidates(), nil
			})

		done := make(chan Snapshot, 1)
		go func() {
			result, err := s.controller.SubmitSearch(ctx, snap.SessionID)
			s.NoError(err)
			done <- result
		}()
		<-entered

		cleared, err := s.controller.ClearAll(ctx, snap.SessionID)
		s.Require().NoError(err)
		s.Equal(PhaseIdle, cleared.Phase)
		s.False(cleared.Busy)

		close(release)
		late := <-done
		s.Equal(PhaseIdle, late.Phase)
		s.Empty(late.Candidates)
		s.Empty(late.Error)

		final, err := s.controller.Snapshot(ctx, snap.SessionID)
		s.Require().NoError(err)
		s.Equal(PhaseIdle, final.Phase)
		s.Empty(final.Candidates)
	})
}

// =============================================================================
// Candidate Selection
// =============================================================================

func (s *ControllerSuite) TestSelectCandidate() {
	ctx := context.Background()

	s.Run("selecting a shown candidate advances the phase", func() {
		snap := s.searchedSession("1015CJ", "246")

		snap, err := s.controller.SelectCandidate(ctx, snap.SessionID, "cand-2")
		s.NoError(err)
		s.Equal(PhaseCandidateSelected, snap.Phase)
		s.Equal("cand-2", snap.SelectedID)
		s.Empty(snap.Error)
	})

	s.Run("selecting an unknown candidate sets an error and keeps state", func() {
		snap := s.searchedSession("1015CJ", "246")

		snap, err := s.controller.SelectCandidate(ctx, snap.SessionID, "cand-99")
		s.NoError(err)
		s.Equal(MsgSelectionNotFound, snap.Error)
		s.Equal(PhaseCandidatesShown, snap.Phase)
		s.Empty(snap.SelectedID)
	})

	s.Run("reselecting replaces the previous selection", func() {
		snap := s.searchedSession("1015CJ", "246")

		_, err := s.controller.SelectCandidate(ctx, snap.SessionID, "cand-1")
		s.Require().NoError(err)
		snap, err = s.controller.SelectCandidate(ctx, snap.SessionID, "cand-2")
		s.NoError(err)
		s.Equal("cand-2", snap.SelectedID)
	})
}

// =============================================================================
// Details Submission and Commit
// =============================================================================

func (s *ControllerSuite) TestSubmitDetails() {
	ctx := context.Background()

	s.Run("blank names are rejected before the selection check", func() {
		snap := s.startSession()

		snap, err := s.controller.SubmitDetails(ctx, snap.SessionID)
		s.NoError(err)
		s.Equal(MsgNameFieldsMandatory, snap.Error)
	})

	s.Run("names without a selection are rejected", func() {
		snap := s.startSession()
		s.setDetails(snap.SessionID, "Jan", "de Vries")

		snap, err := s.controller.SubmitDetails(ctx, snap.SessionID)
		s.NoError(err)
		s.Equal(MsgNoAddressSelected, snap.Error)
	})

	s.Run("commit merges selection and details into the book", func() {
		snap := s.searchedSession("1015CJ", "246")
		_, err := s.controller.SelectCandidate(ctx, snap.SessionID, "cand-1")
		s.Require().NoError(err)
		s.setDetails(snap.SessionID, "Jan", "de Vries")

		snap, err = s.controller.SubmitDetails(ctx, snap.SessionID)
		s.NoError(err)
		s.Empty(snap.Error)
		s.Equal(PhaseIdle, snap.Phase)
		s.Empty(snap.Candidates)
		s.Empty(snap.SelectedID)

		// Details form resets, search form keeps its values.
		s.Empty(snap.DetailFields[FieldFirstName].Text)
		s.Equal("1015CJ", snap.SearchFields[FieldPostcode].Text)

		records, err := s.book.List(ctx)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal("cand-1", records[0].ID)
		s.Equal("Jan", records[0].FirstName)
		s.Equal("de Vries", records[0].LastName)
		s.Equal("246", records[0].HouseNumber)
	})

	s.Run("committing the same candidate twice keeps one record", func() {
		for range 2 {
			snap := s.searchedSession("1015CJ", "246")
			_, err := s.controller.SelectCandidate(ctx, snap.SessionID, "cand-1")
			s.Require().NoError(err)
			s.setDetails(snap.SessionID, "Jan", "de Vries")
			_, err = s.controller.SubmitDetails(ctx, snap.SessionID)
			s.Require().NoError(err)
		}

		records, err := s.book.List(ctx)
		s.Require().NoError(err)
		s.Len(records, 1)
		s.Equal("Jan", records[0].FirstName)
	})
}

// =============================================================================
// Clear All
// =============================================================================

func (s *ControllerSuite) TestClearAll() {
	ctx := context.Background()

	s.Run("resets forms, candidates, selection and error", func() {
		snap := s.searchedSession("1015CJ", "246")
		_, err := s.controller.SelectCandidate(ctx, snap.SessionID, "cand-1")
		s.Require().NoError(err)
		s.setDetails(snap.SessionID, "Jan", "de Vries")

		snap, err = s.controller.ClearAll(ctx, snap.SessionID)
		s.NoError(err)
		s.Equal(PhaseIdle, snap.Phase)
		s.Empty(snap.Error)
		s.Empty(snap.Candidates)
		s.Empty(snap.SelectedID)
		s.Empty(snap.SearchFields[FieldPostcode].Text)
		s.Empty(snap.DetailFields[FieldFirstName].Text)
	})

	s.Run("leaves committed records untouched", func() {
		snap := s.searchedSession("1015CJ", "246")
		_, err := s.controller.SelectCandidate(ctx, snap.SessionID, "cand-1")
		s.Require().NoError(err)
		s.setDetails(snap.SessionID, "Jan", "de Vries")
		_, err = s.controller.SubmitDetails(ctx, snap.SessionID)
		s.Require().NoError(err)

		_, err = s.controller.ClearAll(ctx, snap.SessionID)
		s.NoError(err)

		records, err := s.book.List(ctx)
		s.Require().NoError(err)
		s.Len(records, 1)
	})
}

// =============================================================================
// Observers
// =============================================================================

func (s *ControllerSuite) TestSubscribe() {
	ctx := context.Background()

	var seen []Snapshot
	s.controller.Subscribe(func(snap Snapshot) {
		seen = append(seen, snap)
	})

	snap := s.startSession()
	s.gateway.EXPECT().
		Search(gomock.Any(), "1015CJ", "246").
		Return(twoCandidates(), nil)
	s.setSearch(snap.SessionID, "1015CJ", "246")
	_, err := s.controller.SubmitSearch(ctx, snap.SessionID)
	s.Require().NoError(err)

	// Two field edits plus the searching and completed snapshots.
	s.Require().GreaterOrEqual(len(seen), 4)
	last := seen[len(seen)-1]
	s.Equal(PhaseCandidatesShown, last.Phase)
	s.Len(last.Candidates, 2)

	var sawSearching bool
	for _, snap := range seen {
		if snap.Phase == PhaseSearching && snap.Busy {
			sawSearching = true
		}
	}
	s.True(sawSearching, "observers should see the busy searching snapshot")
}

func (s *ControllerSuite) TestObserverCanReadBackDuringNotification() {
	ctx := context.Background()

	// Rendering surfaces read state back from the controller when notified;
	// the session lock must already be released by then.
	var observed []Phase
	s.controller.Subscribe(func(snap Snapshot) {
		readBack, err := s.controller.Snapshot(ctx, snap.SessionID)
		s.Require().NoError(err)
		observed = append(observed, readBack.Phase)
	})

	snap := s.startSession()
	_, err := s.controller.SetSearchField(ctx, snap.SessionID, FieldPostcode, "1015CJ")
	s.Require().NoError(err)
	_, err = s.controller.SetSearchField(ctx, snap.SessionID, FieldHouseNumber, "246")
	s.Require().NoError(err)

	s.gateway.EXPECT().
		Search(gomock.Any(), "1015CJ", "246").
		Return(twoCandidates(), nil)
	_, err = s.controller.SubmitSearch(ctx, snap.SessionID)
	s.Require().NoError(err)

	_, err = s.controller.SelectCandidate(ctx, snap.SessionID, "cand-1")
	s.Require().NoError(err)
	_, err = s.controller.ClearAll(ctx, snap.SessionID)
	s.Require().NoError(err)

	// Two field edits, searching, candidates shown, selected, cleared.
	s.Require().Len(observed, 6)
	s.Equal(PhaseCandidateSelected, observed[4])
	s.Equal(PhaseIdle, observed[5])
}

// searchedSession starts a session and runs a successful lookup so tests can
// begin from the candidates-shown phase.
func (s *ControllerSuite) searchedSession(postcode, houseNumber string) Snapshot {
	snap := s.startSession()
	s.setSearch(snap.SessionID, postcode, houseNumber)
	s.gateway.EXPECT().
		Search(gomock.Any(), postcode, houseNumber).
		Return(twoCandidates(), nil)
	snap, err := s.controller.SubmitSearch(context.Background(), snap.SessionID)
	s.Require().NoError(err)
	s.Require().Equal(PhaseCandidatesShown, snap.Phase)
	return snap
}
