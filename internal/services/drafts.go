package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"gameroom-backend/internal/models"
)

// DraftStore persists each user's in-progress shift so it survives restarts.
// There is exactly one slot per user id: two sessions signed in as the same
// user share and overwrite the same draft.
type DraftStore interface {
	// Load returns nil, nil when the user has no draft
	Load(ctx context.Context, userID string) (*models.DraftShift, error)
	Save(ctx context.Context, draft *models.DraftShift) error
	Delete(ctx context.Context, userID string) error
}

// MemoryDraftStore keeps drafts in process memory
type MemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[string]*models.DraftShift
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string]*models.DraftShift)}
}

func (s *MemoryDraftStore) Load(_ context.Context, userID string) (*models.DraftShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drafts[userID].Clone(), nil
}

func (s *MemoryDraftStore) Save(_ context.Context, draft *models.DraftShift) error {
	if draft == nil || draft.UserID == "" {
		return errors.New("draft requires a user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[draft.UserID] = draft.Clone()
	return nil
}

func (s *MemoryDraftStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
	return nil
}

// RedisDraftStore keeps drafts as JSON under ongoingShift_<uid> with no expiry
type RedisDraftStore struct {
	rdb *redis.Client
}

func NewRedisDraftStore(rdb *redis.Client) *RedisDraftStore {
	return &RedisDraftStore{rdb: rdb}
}

func draftKey(userID string) string {
	return "ongoingShift_" + userID
}

func (s *RedisDraftStore) Load(ctx context.Context, userID string) (*models.DraftShift, error) {
	raw, err := s.rdb.Get(ctx, draftKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft shift: %w", err)
	}

	var draft models.DraftShift
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft shift: %w", err)
	}
	if draft.Machines == nil {
		draft.Machines = make(map[string]*models.MachineEntry)
	}
	return &draft, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, draft *models.DraftShift) error {
	if draft == nil || draft.UserID == "" {
		return errors.New("draft requires a user id")
	}
	raw, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, draftKey(draft.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save draft shift: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, draftKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft shift: %w", err)
	}
	return nil
}
