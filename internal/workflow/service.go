package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"adresboek/internal/addressbook"
	"adresboek/internal/audit"
	"adresboek/internal/domain"
	"adresboek/internal/formstate"
	"adresboek/internal/lookup"
	"adresboek/internal/platform/metrics"
	"adresboek/internal/platform/middleware"
	dErrors "adresboek/pkg/domain-errors"
)

// Observer receives the session snapshot after every completed transition,
// including the asynchronous completion of a lookup.
type Observer func(snap Snapshot)

// Controller drives session state transitions. All transitions on one session
// are serialized through a per-session mutex; the single exception is the
// lookup call itself, which runs with the lock released so a slow upstream
// never blocks ClearAll or snapshot reads on other sessions.
type Controller struct {
	sessions SessionStore
	book     addressbook.Store
	gateway  lookup.Gateway
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    *audit.Publisher

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	observers []Observer
	obsMu     sync.RWMutex
}

func NewController(
	sessions SessionStore,
	book addressbook.Store,
	gateway lookup.Gateway,
	logger *slog.Logger,
	m *metrics.Metrics,
	publisher *audit.Publisher,
) *Controller {
	return &Controller{
		sessions: sessions,
		book:     book,
		gateway:  gateway,
		logger:   logger,
		metrics:  m,
		audit:    publisher,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Subscribe registers an observer invoked with the snapshot after every
// transition. Observers run outside the session lock.
func (c *Controller) Subscribe(obs Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, obs)
}

// StartSession creates a fresh idle session and returns its snapshot.
func (c *Controller) StartSession(ctx context.Context) (Snapshot, error) {
	sess := NewSession(uuid.NewString())
	if err := c.sessions.Save(ctx, sess); err != nil {
		return Snapshot{}, err
	}
	c.metrics.IncrementSessionsStarted()
	c.audit.Emit(audit.Event{
		Action:    audit.ActionSessionStarted,
		SessionID: sess.ID,
		RequestID: middleware.GetRequestID(ctx),
	})
	return SnapshotOf(sess), nil
}

// Snapshot returns the current read model for a session without mutating it.
func (c *Controller) Snapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	unlock := c.lock(sessionID)
	defer unlock()

	sess, err := c.load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return SnapshotOf(sess), nil
}

// SetSearchField updates one search form field. Field edits are always
// accepted, whatever the phase; only transitions are gated.
func (c *Controller) SetSearchField(ctx context.Context, sessionID, name, text string) (Snapshot, error) {
	return c.setField(ctx, sessionID, name, text, func(sess *Session) *formstate.Store { return sess.Search })
}

// SetDetailsField updates one personal-info form field.
func (c *Controller) SetDetailsField(ctx context.Context, sessionID, name, text string) (Snapshot, error) {
	return c.setField(ctx, sessionID, name, text, func(sess *Session) *formstate.Store { return sess.Details })
}

// SubmitSearch validates the search form and runs the lookup. Submits while a
// lookup is already in flight are ignored and return the current snapshot.
func (c *Controller) SubmitSearch(ctx context.Context, sessionID string) (Snapshot, error) {
	unlock := c.lock(sessionID)

	sess, err := c.load(ctx, sessionID)
	if err != nil {
		unlock()
		return Snapshot{}, err
	}
	if sess.Busy {
		snap := SnapshotOf(sess)
		unlock()
		return snap, nil
	}

	sess.Error = ""
	postcode := strings.TrimSpace(sess.Search.Get(FieldPostcode).Text)
	houseNumber := strings.TrimSpace(sess.Search.Get(FieldHouseNumber).Text)
	if postcode == "" || houseNumber == "" {
		sess.Error = MsgSearchFieldsMandatory
		snap, err := c.commit(ctx, sess)
		unlock()
		c.notify(snap)
		return snap, err
	}

	sess.Busy = true
	sess.Phase = PhaseSearching
	sess.Candidates = nil
	sess.SelectedID = ""
	sess.LookupSeq++
	seq := sess.LookupSeq
	snap, err := c.commit(ctx, sess)
	if err != nil {
		unlock()
		return Snapshot{}, err
	}
	unlock()
	c.notify(snap)

	started := time.Now()
	candidates, lookupErr := c.gateway.Search(ctx, postcode, houseNumber)
	elapsed := time.Since(started)

	unlock = c.lock(sessionID)
	defer unlock()

	sess, err = c.load(ctx, sessionID)
	if err != nil {
		// Session evaporated while the lookup ran; nothing to update.
		return Snapshot{}, err
	}
	if sess.LookupSeq != seq {
		// A clear or newer search superseded this lookup; discard it.
		c.logger.InfoContext(ctx, "discarding stale lookup result",
			"session_id", sessionID, "seq", seq, "current_seq", sess.LookupSeq)
		return SnapshotOf(sess), nil
	}

	sess.Busy = false
	switch {
	case lookupErr != nil:
		var svcErr lookup.Error
		if errors.As(lookupErr, &svcErr) {
			c.metrics.ObserveLookup(metrics.LookupOutcomeUpstream, elapsed)
			sess.Error = svcErr.Message
		} else {
			c.metrics.ObserveLookup(metrics.LookupOutcomeTransport, elapsed)
			c.logger.ErrorContext(ctx, "address lookup failed",
				"session_id", sessionID, "error", lookupErr)
			sess.Error = MsgLookupFailed
		}
		sess.Phase = PhaseIdle
	case len(candidates) == 0:
		c.metrics.ObserveLookup(metrics.LookupOutcomeEmpty, elapsed)
		sess.Error = MsgNoAddressesFound
		sess.Phase = PhaseIdle
	default:
		c.metrics.ObserveLookup(metrics.LookupOutcomeFound, elapsed)
		stamped := make([]domain.Candidate, len(candidates))
		for i, cand := range candidates {
			cand.HouseNumber = houseNumber
			stamped[i] = cand
		}
		sess.Candidates = stamped
		sess.Phase = PhaseCandidatesShown
	}

	snap, err = c.commit(ctx, sess)
	unlock()
	c.notify(snap)
	return snap, err
}

// SelectCandidate marks one of the shown candidates as the selection.
func (c *Controller) SelectCandidate(ctx context.Context, sessionID, candidateID string) (Snapshot, error) {
	unlock := c.lock(sessionID)
	defer unlock()

	sess, err := c.load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if sess.Busy {
		return SnapshotOf(sess), nil
	}

	sess.Error = ""
	if candidateOf(sess.Candidates, candidateID) == nil {
		sess.Error = MsgSelectionNotFound
	} else {
		sess.SelectedID = candidateID
		sess.Phase = PhaseCandidateSelected
	}
	snap, err := c.commit(ctx, sess)
	unlock()
	c.notify(snap)
	return snap, err
}

// SubmitDetails validates the personal-info form against the selection and
// commits the merged record into the address book. Checks run in a fixed
// order so the user always sees the earliest applicable message.
func (c *Controller) SubmitDetails(ctx context.Context, sessionID string) (Snapshot, error) {
	unlock := c.lock(sessionID)
	defer unlock()

	sess, err := c.load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if sess.Busy {
		return SnapshotOf(sess), nil
	}

	sess.Error = ""
	firstName := strings.TrimSpace(sess.Details.Get(FieldFirstName).Text)
	lastName := strings.TrimSpace(sess.Details.Get(FieldLastName).Text)

	var selected *domain.Candidate
	switch {
	case firstName == "" || lastName == "":
		sess.Error = MsgNameFieldsMandatory
	case sess.SelectedID == "" || len(sess.Candidates) == 0:
		sess.Error = MsgNoAddressSelected
	default:
		selected = candidateOf(sess.Candidates, sess.SelectedID)
		if selected == nil {
			sess.Error = MsgSelectionNotFound
		}
	}

	if selected != nil {
		record := domain.NewRecord(*selected, firstName, lastName)
		appended, addErr := c.book.Add(ctx, record)
		if addErr != nil {
			return Snapshot{}, addErr
		}
		if appended {
			c.metrics.IncrementRecordsCommitted()
		} else {
			c.metrics.IncrementDuplicatesSuppressed()
		}
		c.audit.Emit(audit.Event{
			Action:    audit.ActionRecordCommitted,
			RecordID:  record.ID,
			SessionID: sess.ID,
			RequestID: middleware.GetRequestID(ctx),
		})

		sess.Details.Reset(nil)
		sess.Candidates = nil
		sess.SelectedID = ""
		sess.Phase = PhaseIdle
	}

	snap, err := c.commit(ctx, sess)
	unlock()
	c.notify(snap)
	return snap, err
}

// ClearAll resets the session back to a pristine idle state. The address book
// itself is untouched. Any in-flight lookup is invalidated.
func (c *Controller) ClearAll(ctx context.Context, sessionID string) (Snapshot, error) {
	unlock := c.lock(sessionID)
	defer unlock()

	sess, err := c.load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	sess.Search.Reset(nil)
	sess.Details.Reset(nil)
	sess.Candidates = nil
	sess.SelectedID = ""
	sess.Error = ""
	sess.Busy = false
	sess.LookupSeq++
	sess.Phase = PhaseIdle

	c.audit.Emit(audit.Event{
		Action:    audit.ActionSessionCleared,
		SessionID: sess.ID,
		RequestID: middleware.GetRequestID(ctx),
	})

	snap, err := c.commit(ctx, sess)
	unlock()
	c.notify(snap)
	return snap, err
}

func (c *Controller) setField(ctx context.Context, sessionID, name, text string, pick func(*Session) *formstate.Store) (Snapshot, error) {
	unlock := c.lock(sessionID)
	defer unlock()

	sess, err := c.load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	pick(sess).Set(name, formstate.Text(text))
	snap, err := c.commit(ctx, sess)
	unlock()
	c.notify(snap)
	return snap, err
}

func (c *Controller) load(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := c.sessions.Find(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return nil, err
	}
	return sess, nil
}

func (c *Controller) commit(ctx context.Context, sess *Session) (Snapshot, error) {
	if err := c.sessions.Save(ctx, sess); err != nil {
		return Snapshot{}, err
	}
	return SnapshotOf(sess), nil
}

func (c *Controller) notify(snap Snapshot) {
	c.obsMu.RLock()
	observers := append([]Observer{}, c.observers...)
	c.obsMu.RUnlock()
	for _, obs := range observers {
		obs(snap)
	}
}

// lock returns the unlock func for the session's mutex, creating the mutex on
// first use. Session mutexes are never evicted; sessions are bounded by TTL
// and the per-session cost is one mutex. The returned unlock is idempotent:
// transitions release explicitly before notifying observers and still defer
// it for the error paths.
func (c *Controller) lock(sessionID string) func() {
	c.mu.Lock()
	m, ok := c.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		c.locks[sessionID] = m
	}
	c.mu.Unlock()

	m.Lock()
	var once sync.Once
	return func() { once.Do(m.Unlock) }
}

func candidateOf(candidates []domain.Candidate, id string) *domain.Candidate {
	for i := range candidates {
		if candidates[i].ID == id {
			return &candidates[i]
		}
	}
	return nil
}
