package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"adresboek/internal/domain"
	"adresboek/internal/formstate"
)

// RedisSessionStore persists sessions as JSON with a TTL, so sessions survive
// process restarts and expire on their own. The address book itself is never
// stored here; only the transient workflow state is.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

// sessionRecord is the wire shape. Form stores are flattened to their value
// maps and rebuilt with the fixed descriptors on load.
type sessionRecord struct {
	ID           string                     `json:"id"`
	Phase        Phase                      `json:"phase"`
	Busy         bool                       `json:"busy"`
	Error        string                     `json:"error,omitempty"`
	SearchValues map[string]formstate.Value `json:"search_values"`
	DetailValues map[string]formstate.Value `json:"detail_values"`
	Candidates   []domain.Candidate         `json:"candidates,omitempty"`
	SelectedID   string                     `json:"selected_id,omitempty"`
	LookupSeq    uint64                     `json:"lookup_seq"`
	CreatedAt    time.Time                  `json:"created_at"`
}

func sessionKey(id string) string { return "adresboek:session:" + id }

func (s *RedisSessionStore) Save(ctx context.Context, sess *Session) error {
	record := sessionRecord{
		ID:           sess.ID,
		Phase:        sess.Phase,
		Busy:         sess.Busy,
		Error:        sess.Error,
		SearchValues: sess.Search.Values(),
		DetailValues: sess.Details.Values(),
		Candidates:   sess.Candidates,
		SelectedID:   sess.SelectedID,
		LookupSeq:    sess.LookupSeq,
		CreatedAt:    sess.CreatedAt,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Find(ctx context.Context, id string) (*Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	var record sessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &Session{
		ID:         record.ID,
		Phase:      record.Phase,
		Busy:       record.Busy,
		Error:      record.Error,
		Search:     formstate.NewWithValues(SearchDescriptors(), record.SearchValues),
		Details:    formstate.NewWithValues(DetailDescriptors(), record.DetailValues),
		Candidates: record.Candidates,
		SelectedID: record.SelectedID,
		LookupSeq:  record.LookupSeq,
		CreatedAt:  record.CreatedAt,
	}, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
