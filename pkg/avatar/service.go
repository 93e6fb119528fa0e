package avatar

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/killallgit/cognilink/pkg/logger"
)

// Profile is the generated identity of a new persona
type Profile struct {
	Name           string `json:"name"`
	PrimeDirective string `json:"primeDirective"`
}

// ProfileGenerator turns a free-text description into a Profile
type ProfileGenerator interface {
	GenerateProfile(ctx context.Context, description string) (Profile, error)
}

// ImageGenerator renders an avatar picture as a data URI
type ImageGenerator interface {
	GenerateImage(ctx context.Context, description string) (string, error)
}

// Saver persists the whole avatar list
type Saver interface {
	SaveAvatars(ctx context.Context, avatars []Avatar) error
}

// Conversations is the slice of the history manager avatars need
type Conversations interface {
	Ensure(id string)
	Delete(id string)
	Select(id string)
	Selected() string
}

type ServiceOption func(*Service)

func WithImageGenerator(g ImageGenerator) ServiceOption {
	return func(s *Service) { s.images = g }
}

func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

// Service owns the ordered avatar list
type Service struct {
	avatars       []Avatar
	profiles      ProfileGenerator
	images        ImageGenerator
	saver         Saver
	conversations Conversations
	newID         func() string
	mu            sync.RWMutex
}

// NewService starts from previously stored avatars and selects the first one
func NewService(initial []Avatar, profiles ProfileGenerator, saver Saver, conversations Conversations, opts ...ServiceOption) *Service {
	s := &Service{
		avatars:       append([]Avatar(nil), initial...),
		profiles:      profiles,
		saver:         saver,
		conversations: conversations,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.avatars) > 0 && conversations.Selected() == "" {
		conversations.Select(s.avatars[0].ID)
	}
	return s
}

// Create generates a persona from description. Image failures fall back to a placeholder.
func (s *Service) Create(ctx context.Context, description string) (Avatar, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Avatar{}, fmt.Errorf("%w: description is required", ErrInvalid)
	}
	if s.profiles == nil {
		return Avatar{}, fmt.Errorf("no profile generator configured")
	}

	profile, err := s.profiles.GenerateProfile(ctx, description)
	if err != nil {
		return Avatar{}, fmt.Errorf("failed to generate avatar profile: %w", err)
	}

	id := s.newID()
	image := s.generateImage(ctx, id, profile.Name, description)

	a := Avatar{
		ID:             id,
		Name:           profile.Name,
		Description:    description,
		PrimeDirective: profile.PrimeDirective,
		ImageDataURI:   image,
		Temperature:    DefaultTemperature,
		WebAccess:      false,
	}
	s.add(ctx, a)
	logger.Info("Created avatar %s (%s)", a.Name, a.ID)
	return a, nil
}

func (s *Service) generateImage(ctx context.Context, id, name, description string) string {
	if s.images == nil {
		return Placeholder(id, name)
	}
	image, err := s.images.GenerateImage(ctx, description)
	if err != nil {
		logger.Warn("Image generation failed, falling back to placeholder: %v", err)
		return Placeholder(id, name)
	}
	return image
}

// CreateFromDefinition adds a persona described in full, skipping generation
func (s *Service) CreateFromDefinition(ctx context.Context, def Definition) (Avatar, error) {
	a := def.Avatar()
	a.ID = s.newID()
	if a.ImageDataURI == "" {
		a.ImageDataURI = Placeholder(a.ID, a.Name)
	}
	if err := a.Validate(); err != nil {
		return Avatar{}, err
	}
	s.add(ctx, a)
	logger.Info("Imported avatar %s (%s)", a.Name, a.ID)
	return a, nil
}

func (s *Service) add(ctx context.Context, a Avatar) {
	s.mu.Lock()
	s.avatars = append(s.avatars, a)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.save(ctx, snapshot)
	s.conversations.Ensure(a.ID)
	s.conversations.Select(a.ID)
}

// Update replaces the stored avatar with the same id
func (s *Service) Update(ctx context.Context, a Avatar) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	idx := s.indexLocked(a.ID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, a.ID)
	}
	s.avatars[idx] = a
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.save(ctx, snapshot)
	return nil
}

// Delete removes the avatar and its conversation. If it was selected, the first
// remaining avatar becomes selected.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.avatars = append(s.avatars[:idx], s.avatars[idx+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	wasSelected := s.conversations.Selected() == id
	s.save(ctx, snapshot)
	s.conversations.Delete(id)

	if wasSelected {
		next := ""
		if len(snapshot) > 0 {
			next = snapshot[0].ID
		}
		s.conversations.Select(next)
	}
	logger.Info("Deleted avatar %s", id)
	return nil
}

// Select makes id the active conversation
func (s *Service) Select(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	s.conversations.Select(id)
	return nil
}

// Selected returns the active avatar, if any
func (s *Service) Selected() (Avatar, bool) {
	a, err := s.Get(s.conversations.Selected())
	return a, err == nil
}

func (s *Service) List() []Avatar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Service) Get(id string) (Avatar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return Avatar{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.avatars[idx], nil
}

func (s *Service) indexLocked(id string) int {
	for i, a := range s.avatars {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) snapshotLocked() []Avatar {
	return append([]Avatar{}, s.avatars...)
}

func (s *Service) save(ctx context.Context, avatars []Avatar) {
	if s.saver == nil {
		return
	}
	if err := s.saver.SaveAvatars(ctx, avatars); err != nil {
		logger.Error("Failed to persist avatars: %v", err)
	}
}
