package export_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/export"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

var _ = Describe("Markdown", func() {
	var at time.Time

	BeforeEach(func() {
		at = time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	})

	It("should render the header alone for an empty conversation", func() {
		Expect(export.Markdown("Zeno", nil, at)).To(Equal("# Chat with Zeno on 2024-03-09\n\n"))
	})

	It("should label speakers and keep message order", func() {
		history := []chat.Message{
			chat.NewUserMessage("Hello", nil),
			chat.NewModelMessage("Greetings.", nil),
		}

		Expect(export.Markdown("Zeno", history, at)).To(Equal(
			"# Chat with Zeno on 2024-03-09\n\n" +
				"**User:**\nHello\n\n" +
				"**Zeno:**\nGreetings.\n\n"))
	})

	It("should embed image attachments only", func() {
		history := []chat.Message{
			chat.NewUserMessage("look", &chat.Attachment{Name: "a.png", DataURI: "data:image/png;base64,AA==", MIMEType: "image/png"}),
			chat.NewUserMessage("read", &chat.Attachment{Name: "a.txt", DataURI: "data:text/plain;base64,aGk=", MIMEType: "text/plain"}),
		}

		out := export.Markdown("Zeno", history, at)
		Expect(out).To(ContainSubstring("**User:**\n![User Image](data:image/png;base64,AA==)\nlook\n\n"))
		Expect(out).To(ContainSubstring("**User:**\nread\n\n"))
		Expect(out).NotTo(ContainSubstring("text/plain"))
	})

	It("should skip empty content but keep the speaker line", func() {
		out := export.Markdown("Zeno", []chat.Message{chat.NewPlaceholder()}, at)
		Expect(out).To(HaveSuffix("**Zeno:**\n"))
	})

	It("should list sources under model replies", func() {
		history := []chat.Message{
			chat.NewModelMessage("Answer", []chat.Source{{Title: "Go", URI: "https://go.dev"}}),
		}

		Expect(export.Markdown("Zeno", history, at)).To(HaveSuffix(
			"**Zeno:**\nAnswer\n\nSources:\n- [Go](https://go.dev)\n\n"))
	})

	It("should use the UTC date", func() {
		local := time.Date(2024, 3, 10, 1, 0, 0, 0, time.FixedZone("CET", 2*3600))
		Expect(export.DateOf(local)).To(Equal("2024-03-09"))
	})

	It("should suggest a dated file name", func() {
		Expect(export.FileName("Zeno", at)).To(Equal("Zeno-Chat-2024-03-09.md"))
	})

	It("should surface writer errors", func() {
		Expect(export.Write(failingWriter{}, "Zeno", nil, at)).To(MatchError("disk full"))
	})
})
