package avatar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/cognilink/pkg/chat"
)

type fakeProfiles struct {
	profile Profile
	err     error
}

func (f fakeProfiles) GenerateProfile(context.Context, string) (Profile, error) {
	return f.profile, f.err
}

type fakeImages struct {
	uri string
	err error
}

func (f fakeImages) GenerateImage(context.Context, string) (string, error) {
	return f.uri, f.err
}

type fakeSaver struct {
	saved [][]Avatar
}

func (f *fakeSaver) SaveAvatars(_ context.Context, avatars []Avatar) error {
	f.saved = append(f.saved, avatars)
	return nil
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("avatar-%d", n)
	}
}

func newTestService(initial []Avatar, opts ...ServiceOption) (*Service, *fakeSaver, *chat.Manager) {
	saver := &fakeSaver{}
	conv := chat.NewManager(nil, nil)
	profiles := fakeProfiles{profile: Profile{Name: "Zeno", PrimeDirective: "You are Zeno."}}
	opts = append([]ServiceOption{WithIDGenerator(sequentialIDs())}, opts...)
	return NewService(initial, profiles, saver, conv, opts...), saver, conv
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("should create, select and give the avatar an empty history", func(t *testing.T) {
		svc, saver, conv := newTestService(nil, WithImageGenerator(fakeImages{uri: "data:image/png;base64,AAAA"}))

		a, err := svc.Create(ctx, "  a stoic philosopher ")
		require.NoError(t, err)

		assert.Equal(t, Avatar{
			ID:             "avatar-1",
			Name:           "Zeno",
			Description:    "a stoic philosopher",
			PrimeDirective: "You are Zeno.",
			ImageDataURI:   "data:image/png;base64,AAAA",
			Temperature:    0.8,
			WebAccess:      false,
		}, a)
		assert.Equal(t, "avatar-1", conv.Selected())
		_, exists := conv.Histories()["avatar-1"]
		assert.True(t, exists)
		require.Len(t, saver.saved, 1)
		assert.Len(t, saver.saved[0], 1)
	})

	t.Run("should fall back to a placeholder when image generation fails", func(t *testing.T) {
		svc, _, _ := newTestService(nil, WithImageGenerator(fakeImages{err: errors.New("quota")}))

		a, err := svc.Create(ctx, "anything")
		require.NoError(t, err)
		assert.Equal(t, Placeholder("avatar-1", "Zeno"), a.ImageDataURI)
	})

	t.Run("should use a placeholder without an image generator", func(t *testing.T) {
		svc, _, _ := newTestService(nil)

		a, err := svc.Create(ctx, "anything")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(a.ImageDataURI, "data:image/svg+xml;base64,"))
	})

	t.Run("should surface profile failures and add nothing", func(t *testing.T) {
		saver := &fakeSaver{}
		svc := NewService(nil, fakeProfiles{err: errors.New("RESOURCE_EXHAUSTED")}, saver, chat.NewManager(nil, nil))

		_, err := svc.Create(ctx, "anything")
		assert.ErrorContains(t, err, "RESOURCE_EXHAUSTED")
		assert.Empty(t, svc.List())
		assert.Empty(t, saver.saved)
	})

	t.Run("should require a description", func(t *testing.T) {
		svc, _, _ := newTestService(nil)
		_, err := svc.Create(ctx, "   ")
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("should import a definition without generation", func(t *testing.T) {
		svc, _, conv := newTestService(nil)
		temp := 0.2

		a, err := svc.CreateFromDefinition(ctx, Definition{Name: "Ada", Description: "d", PrimeDirective: "p", Temperature: &temp})
		require.NoError(t, err)
		assert.Equal(t, 0.2, a.Temperature)
		assert.Equal(t, a.ID, conv.Selected())

		_, err = svc.CreateFromDefinition(ctx, Definition{Name: "Ada"})
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	seed := []Avatar{
		{ID: "a", Name: "A", Description: "d", PrimeDirective: "p", Temperature: 0.8},
		{ID: "b", Name: "B", Description: "d", PrimeDirective: "p", Temperature: 0.8},
		{ID: "c", Name: "C", Description: "d", PrimeDirective: "p", Temperature: 0.8},
	}

	t.Run("should select the first stored avatar on start", func(t *testing.T) {
		_, _, conv := newTestService(seed)
		assert.Equal(t, "a", conv.Selected())
	})

	t.Run("should update by id and validate", func(t *testing.T) {
		svc, saver, _ := newTestService(seed)

		edited := seed[1]
		edited.Temperature = 0.1
		edited.WebAccess = true
		require.NoError(t, svc.Update(ctx, edited))

		got, err := svc.Get("b")
		require.NoError(t, err)
		assert.True(t, got.WebAccess)
		assert.Len(t, saver.saved, 1)

		edited.Name = ""
		assert.ErrorIs(t, svc.Update(ctx, edited), ErrInvalid)

		missing := seed[0]
		missing.ID = "zzz"
		assert.ErrorIs(t, svc.Update(ctx, missing), ErrNotFound)
	})

	t.Run("should select the first remaining avatar after deleting the selected one", func(t *testing.T) {
		svc, _, conv := newTestService(seed)
		require.NoError(t, svc.Select("b"))
		conv.Append("b", chat.NewUserMessage("hi", nil))

		require.NoError(t, svc.Delete(ctx, "b"))

		assert.Equal(t, "a", conv.Selected())
		_, exists := conv.Histories()["b"]
		assert.False(t, exists)
		assert.Len(t, svc.List(), 2)
	})

	t.Run("should keep the selection when deleting another avatar", func(t *testing.T) {
		svc, _, conv := newTestService(seed)
		require.NoError(t, svc.Select("c"))

		require.NoError(t, svc.Delete(ctx, "a"))
		assert.Equal(t, "c", conv.Selected())
	})

	t.Run("should clear the selection when the last avatar goes", func(t *testing.T) {
		svc, _, conv := newTestService(seed[:1])
		require.NoError(t, svc.Delete(ctx, "a"))

		assert.Equal(t, "", conv.Selected())
		_, ok := svc.Selected()
		assert.False(t, ok)
	})

	t.Run("should reject unknown ids", func(t *testing.T) {
		svc, _, _ := newTestService(seed)
		assert.ErrorIs(t, svc.Delete(ctx, "nope"), ErrNotFound)
		assert.ErrorIs(t, svc.Select("nope"), ErrNotFound)
	})
}
