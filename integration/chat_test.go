package integration

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/killallgit/cognilink/pkg/app"
	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/llm"
	"github.com/killallgit/cognilink/pkg/llm/ollama"
	"github.com/killallgit/cognilink/pkg/reconciler"
	"github.com/killallgit/cognilink/pkg/repository"
	"github.com/killallgit/cognilink/pkg/store"
	"github.com/killallgit/cognilink/pkg/store/sqlite"
	"github.com/killallgit/cognilink/pkg/stream"
)

var _ = Describe("Chat against a live Ollama server", func() {
	var (
		ctx      context.Context
		dbPath   string
		provider *ollama.Provider
	)

	openApp := func() (*app.App, store.Store) {
		s, err := sqlite.NewStore(store.WithLocation(dbPath), store.WithContext(ctx))
		Expect(err).NotTo(HaveOccurred())
		a, err := app.New(ctx, repository.New(s), provider,
			app.WithReconcilerOptions(
				reconciler.WithFlushInterval(100*time.Millisecond),
				reconciler.WithMessages(reconciler.MessagesFor("en")),
			),
		)
		Expect(err).NotTo(HaveOccurred())
		return a, s
	}

	BeforeEach(func() {
		if !integrationEnabled() {
			Skip("Integration tests skipped. Set INTEGRATION_TEST=true to run.")
		}
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "cognilink.db")

		var err error
		provider, err = ollama.New(llm.WithBaseURL(ollamaURL()), llm.WithModel(ollamaModel()))
		Expect(err).NotTo(HaveOccurred())

		status, err := provider.CheckHealth(ctx)
		Expect(err).NotTo(HaveOccurred())
		if !status.Available {
			Skip("Ollama is not available: " + status.Error.Error())
		}
		if !status.HasModel(ollamaModel()) {
			Skip("Model " + ollamaModel() + " is not pulled")
		}
	})

	It("streams a reply and keeps it across restarts", func() {
		a, s := openApp()
		created, err := a.Avatars().CreateFromDefinition(ctx, avatar.Definition{
			Name:           "Echo",
			Description:    "repeats words",
			PrimeDirective: "Reply with the single word the user sends, nothing else.",
		})
		Expect(err).NotTo(HaveOccurred())

		var chunks []string
		final, err := a.Send(ctx, created.ID, "banana", nil, stream.HandlerFunc{
			ChunkFunc: func(chunk []byte) error {
				chunks = append(chunks, string(chunk))
				return nil
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(final.Role).To(Equal(chat.RoleModel))
		Expect(strings.ToLower(final.Content)).To(ContainSubstring("banana"))
		Expect(strings.Join(chunks, "")).To(Equal(final.Content))
		Expect(s.Close()).To(Succeed())

		reopened, s2 := openApp()
		defer s2.Close()
		history, err := reopened.History(created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(2))
		Expect(history[1].Content).To(Equal(final.Content))

		_, markdown, err := reopened.Export(created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(markdown).To(ContainSubstring("**User:**\nbanana"))
	})

	It("generates an avatar profile", func() {
		a, s := openApp()
		defer s.Close()

		created, err := a.Avatars().Create(ctx, "a cheerful pirate captain")
		Expect(err).NotTo(HaveOccurred())
		Expect(created.Name).NotTo(BeEmpty())
		Expect(created.PrimeDirective).NotTo(BeEmpty())
		Expect(created.ImageDataURI).To(HavePrefix("data:image/svg+xml"))
	})
})
