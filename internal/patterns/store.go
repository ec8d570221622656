package patterns

import (
	"context"
	"sort"
	"sync"

	"tonelearn/internal/models"
)

// MemoryStore keeps profiles in process. It stands in for the database when
// none is configured; Get returns nil for a missing profile.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.StoredProfile
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]models.StoredProfile)}
}

func profileKey(userID, preferenceType, target string) string {
	return userID + "\x00" + preferenceType + "\x00" + target
}

// Upsert stores p, replacing any profile with the same identity
func (s *MemoryStore) Upsert(_ context.Context, p models.StoredProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profileKey(p.UserID, p.PreferenceType, p.TargetIdentifier)] = p
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userID, preferenceType, target string) (*models.StoredProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profileKey(userID, preferenceType, target)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// DeleteByUser removes every profile of userID and reports how many went
func (s *MemoryStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, p := range s.profiles {
		if p.UserID == userID {
			delete(s.profiles, key)
			n++
		}
	}
	return n, nil
}

// ListByUser returns the user's profiles ordered by preference type and target
func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]models.StoredProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.StoredProfile, 0)
	for _, p := range s.profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PreferenceType != out[j].PreferenceType {
			return out[i].PreferenceType < out[j].PreferenceType
		}
		return out[i].TargetIdentifier < out[j].TargetIdentifier
	})
	return out, nil
}
