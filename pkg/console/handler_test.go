package console

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/cognilink/pkg/chat"
)

func TestReplyHandler(t *testing.T) {
	t.Run("should render the streamed reply once with its sources", func(t *testing.T) {
		var out bytes.Buffer
		h := newReplyHandler(&out, false)

		require.NoError(t, h.OnChunk([]byte("Virtue is ")))
		require.NoError(t, h.OnComplete(chat.NewModelMessage("Virtue is enough.", []chat.Source{
			{Title: "Stoicism", URI: "https://example.com/stoa"},
			{URI: "https://example.com/untitled"},
		})))

		assert.Equal(t, "Virtue is enough.\n\nSources:\n"+
			"  [1] Stoicism https://example.com/stoa\n"+
			"  [2] https://example.com/untitled https://example.com/untitled\n", out.String())
	})

	t.Run("should print the canned reply on a new line after a failure", func(t *testing.T) {
		var out bytes.Buffer
		h := newReplyHandler(&out, false)

		require.NoError(t, h.OnChunk([]byte("partial")))
		h.OnError(errors.New("boom"))
		require.NoError(t, h.OnComplete(chat.NewModelMessage("Sorry, try again.", nil)))

		assert.Equal(t, "partial\nSorry, try again.\n", out.String())
	})

	t.Run("should print a reply that was never streamed", func(t *testing.T) {
		var out bytes.Buffer
		h := newReplyHandler(&out, false)

		require.NoError(t, h.OnComplete(chat.NewModelMessage("All at once", nil)))

		assert.Equal(t, "All at once\n", out.String())
	})
}
