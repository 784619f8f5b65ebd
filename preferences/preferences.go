package preferences

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jrsteele09/go-social-client/kvstore"
)

const (
	KeyDarkMode      = "darkMode"
	KeySearchHistory = "searchHistory"
	KeyViewedStories = "viewedStories"

	// MaxSearchHistory is how many recent queries are remembered.
	MaxSearchHistory = 10
)

// Store holds user preferences that outlive the session: theme, recent
// searches and which stories have already been viewed.
type Store struct {
	kv   kvstore.Store
	lock sync.Mutex
}

func New(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

func (s *Store) DarkMode() (bool, error) {
	raw, ok, err := s.kv.Get(KeyDarkMode)
	if err != nil || !ok {
		return false, err
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, nil
	}
	return enabled, nil
}

func (s *Store) SetDarkMode(enabled bool) error {
	return s.kv.Set(KeyDarkMode, strconv.FormatBool(enabled))
}

// SearchHistory returns recent queries, most recent first.
func (s *Store) SearchHistory() ([]string, error) {
	return s.readList(KeySearchHistory)
}

// AddSearch records query as the most recent search. A repeated query moves to
// the front instead of appearing twice; the list keeps MaxSearchHistory entries.
func (s *Store) AddSearch(query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.SearchHistory()
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	history, err := s.readList(KeySearchHistory)
	if err != nil {
		return nil, err
	}
	history = pushFront(history, query, MaxSearchHistory)
	if err := s.writeList(KeySearchHistory, history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *Store) ClearSearchHistory() error {
	return s.kv.Delete(KeySearchHistory)
}

// MarkStoryViewed remembers that the story has been seen.
func (s *Store) MarkStoryViewed(storyID string) error {
	if storyID == "" {
		return nil
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	viewed, err := s.readList(KeyViewedStories)
	if err != nil {
		return err
	}
	for _, id := range viewed {
		if id == storyID {
			return nil
		}
	}
	return s.writeList(KeyViewedStories, append(viewed, storyID))
}

func (s *Store) IsStoryViewed(storyID string) (bool, error) {
	viewed, err := s.readList(KeyViewedStories)
	if err != nil {
		return false, err
	}
	for _, id := range viewed {
		if id == storyID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ViewedStories() ([]string, error) {
	return s.readList(KeyViewedStories)
}

// pushFront moves item to the head of list, dropping duplicates and trimming
// the tail beyond limit.
func pushFront(list []string, item string, limit int) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, item)
	for _, existing := range list {
		if existing != item {
			out = append(out, existing)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) readList(key string) ([]string, error) {
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return []string{}, nil
	}
	return list, nil
}

func (s *Store) writeList(key string, list []string) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
