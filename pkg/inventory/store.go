package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/cloudmeowmog/mezastar/pkg/utils"
)

var (
	ErrNotFound    = errors.New("card not found")
	ErrInvalidName = errors.New("card name is required")
)

// Store is the on-disk inventory: one JSON array of cards kept sorted by name.
// Every mutation rewrites the whole file atomically. If a write fails the
// in-memory state keeps the change and Dirty reports true until Save succeeds.
type Store struct {
	path string

	mu    sync.RWMutex
	cards []Card
	dirty bool
}

// Open loads the inventory at path. A missing file is an empty inventory.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory state with the file contents.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.cards = nil
		s.dirty = false
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read inventory: %w", err)
	}

	cards, err := decodeCards(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cards = cards
	s.dirty = false
	s.mu.Unlock()

	log.Info().Str("path", s.path).Int("cards", len(cards)).Msg("Inventory loaded")
	return nil
}

func decodeCards(data []byte) ([]Card, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var raw []rawCard
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}

	cards := make([]Card, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		c := r.toCard()
		if c.Name == "" {
			log.Warn().Msg("Skipping inventory record without a name")
			continue
		}
		if seen[c.Name] {
			log.Warn().Str("card", c.Name).Msg("Duplicate card name in inventory, keeping first")
			continue
		}
		seen[c.Name] = true
		cards = append(cards, c)
	}
	sortCards(cards)
	return cards, nil
}

func sortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Name < cards[j].Name
	})
}

// Path is the inventory file location.
func (s *Store) Path() string {
	return s.path
}

// Cards returns a copy of the inventory in name order.
func (s *Store) Cards() []Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Card, len(s.cards))
	copy(out, s.cards)
	return out
}

func (s *Store) Get(name string) (Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cards {
		if c.Name == name {
			return c, nil
		}
	}
	return Card{}, ErrNotFound
}

// Dirty reports whether the last write failed and memory is ahead of disk.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Upsert inserts or replaces the card with the same name and persists.
func (s *Store) Upsert(card Card) error {
	card = Normalize(card)
	if card.Name == "" {
		return ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.cards {
		if s.cards[i].Name == card.Name {
			s.cards[i] = card
			replaced = true
			break
		}
	}
	if !replaced {
		s.cards = append(s.cards, card)
		sortCards(s.cards)
	}
	s.dirty = true
	return s.saveLocked()
}

// Delete removes a card by name and persists.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.cards {
		if c.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	s.cards = append(s.cards[:idx], s.cards[idx+1:]...)
	s.dirty = true
	return s.saveLocked()
}

// Save writes the current state, typically to retry after a failed mutation.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	cards := s.cards
	if cards == nil {
		cards = []Card{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(cards, "", "  ")
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Failed to save inventory")
		return fmt.Errorf("save inventory: %w", err)
	}
	s.dirty = false
	return nil
}

// ImageSide is the face of a physical card photo.
type ImageSide string

const (
	Front ImageSide = "front"
	Back  ImageSide = "back"
)

// ImagePath derives the stored photo path for a card face from its name.
func ImagePath(dir, name string, side ImageSide) string {
	return filepath.Join(dir, safeFileName(name)+"_"+string(side)+".png")
}

func safeFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case r < 0x20:
			continue
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
