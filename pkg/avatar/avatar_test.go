package avatar

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarJSON(t *testing.T) {
	t.Run("should default settings missing from older avatars", func(t *testing.T) {
		var a Avatar
		require.NoError(t, json.Unmarshal([]byte(`{"id":"x","name":"Zeno","description":"d","primeDirective":"p","imageDataUri":"data:"}`), &a))

		assert.Equal(t, DefaultTemperature, a.Temperature)
		assert.False(t, a.WebAccess)
		assert.Equal(t, "Zeno", a.Name)
	})

	t.Run("should keep an explicit zero temperature", func(t *testing.T) {
		var a Avatar
		require.NoError(t, json.Unmarshal([]byte(`{"id":"x","temperature":0,"webAccess":true}`), &a))

		assert.Equal(t, 0.0, a.Temperature)
		assert.True(t, a.WebAccess)
	})

	t.Run("should use the stored field names", func(t *testing.T) {
		data, err := json.Marshal(Avatar{ID: "x", PrimeDirective: "p", ImageDataURI: "u"})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"primeDirective":"p"`)
		assert.Contains(t, string(data), `"imageDataUri":"u"`)
	})
}

func TestValidate(t *testing.T) {
	valid := Avatar{Name: "n", Description: "d", PrimeDirective: "p", Temperature: 0.5}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.Description = "  "
	assert.ErrorIs(t, missing.Validate(), ErrInvalid)

	hot := valid
	hot.Temperature = 1.5
	assert.ErrorContains(t, hot.Validate(), "temperature")
}

func TestPlaceholder(t *testing.T) {
	t.Run("should pick colours with a wrapping 32-bit hash", func(t *testing.T) {
		assert.Equal(t, int32(96354), hashID("abc"))
		assert.Equal(t, "#22c55e", PlaceholderColor("abc"))
		assert.Equal(t, int32(-1885019005), hashID("f47ac10b-58cc-4372-a567-0e02b2c3d479"))
		assert.Equal(t, "#14b8a6", PlaceholderColor("f47ac10b-58cc-4372-a567-0e02b2c3d479"))
		assert.Equal(t, "#d946ef", PlaceholderColor("persona-42"))
	})

	t.Run("should render the upper-cased initial as an svg data uri", func(t *testing.T) {
		uri := Placeholder("abc", "  zeno")
		require.True(t, strings.HasPrefix(uri, "data:image/svg+xml;base64,"))

		svg, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/svg+xml;base64,"))
		require.NoError(t, err)
		assert.Contains(t, string(svg), `fill="#22c55e"`)
		assert.Contains(t, string(svg), `>Z</text>`)
	})

	t.Run("should fall back to C for an empty name", func(t *testing.T) {
		assert.Equal(t, "C", placeholderInitial(""))
		assert.Equal(t, "É", placeholderInitial("élan"))
	})

	t.Run("should leave the initial blank for a whitespace name", func(t *testing.T) {
		assert.Equal(t, "", placeholderInitial("   "))

		uri := Placeholder("abc", "  ")
		svg, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/svg+xml;base64,"))
		require.NoError(t, err)
		assert.Contains(t, string(svg), `central"></text>`)
	})
}

func TestParseProfile(t *testing.T) {
	t.Run("should decode raw json", func(t *testing.T) {
		p, err := ParseProfile(`{"name":"Zeno","primeDirective":"You are Zeno."}`)
		require.NoError(t, err)
		assert.Equal(t, Profile{Name: "Zeno", PrimeDirective: "You are Zeno."}, p)
	})

	t.Run("should strip a code fence", func(t *testing.T) {
		p, err := ParseProfile("```json\n{\"name\":\"Ada\",\"primeDirective\":\"You are Ada.\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, "Ada", p.Name)
	})

	t.Run("should reject incomplete or invalid replies", func(t *testing.T) {
		_, err := ParseProfile(`{"name":"OnlyName"}`)
		assert.Error(t, err)
		_, err = ParseProfile("I cannot do that")
		assert.Error(t, err)
	})

	t.Run("should embed the description in prompts", func(t *testing.T) {
		assert.Contains(t, ProfilePrompt("a stoic"), `"a stoic"`)
		assert.Contains(t, ImagePrompt("a stoic"), `"a stoic"`)
	})
}

func TestDefinition(t *testing.T) {
	t.Run("should parse yaml and default temperature", func(t *testing.T) {
		def, err := ParseDefinition([]byte("name: Zeno\ndescription: stoic\nprimeDirective: You are Zeno.\nwebAccess: true\n"))
		require.NoError(t, err)

		a := def.Avatar()
		assert.Equal(t, "Zeno", a.Name)
		assert.Equal(t, DefaultTemperature, a.Temperature)
		assert.True(t, a.WebAccess)
	})

	t.Run("should round trip through DefinitionOf", func(t *testing.T) {
		a := Avatar{Name: "Ada", Description: "d", PrimeDirective: "p", Temperature: 0.3}
		data, err := DefinitionOf(a).Marshal()
		require.NoError(t, err)

		def, err := ParseDefinition(data)
		require.NoError(t, err)
		assert.Equal(t, 0.3, def.Avatar().Temperature)
	})

	t.Run("should reject malformed yaml", func(t *testing.T) {
		_, err := ParseDefinition([]byte("name: [unterminated"))
		assert.Error(t, err)
	})
}
