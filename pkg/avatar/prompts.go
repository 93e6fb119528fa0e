package avatar

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)^```(\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")

// ProfilePrompt asks a model for a JSON {name, primeDirective} object
func ProfilePrompt(description string) string {
	return fmt.Sprintf(`
Based on the user's description of an AI persona, generate a fitting name and a detailed "Prime Directive" (a system instruction) for the AI. The user description is: %q.

The Prime Directive should be a comprehensive guide for the AI's behavior, personality, and knowledge domain. It must instruct the AI to embody the described persona consistently. The prime directive should be written from the perspective of instructing the AI. For example, start with "You are...".

Return ONLY a raw JSON object with the keys "name" and "primeDirective". Do not include any other text, explanations, or markdown code fences.

Example response for description "a stoic philosopher":
{
  "name": "Zeno",
  "primeDirective": "You are Zeno, a Stoic philosopher. Your purpose is to provide guidance based on the principles of Stoicism..."
}
`, description)
}

// ImagePrompt describes the avatar picture to an image model
func ImagePrompt(description string) string {
	return fmt.Sprintf("Create a simple, abstract, and iconic avatar for an AI persona. The persona is described as: %q. "+
		"The avatar should be visually appealing, suitable for a chat interface, and avoid text or complex details. "+
		"Focus on colors and shapes that represent the persona's core traits. The background should be a solid color.", description)
}

// ParseProfile decodes a model's profile reply, tolerating a surrounding code fence
func ParseProfile(text string) (Profile, error) {
	body := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(body); m != nil && m[2] != "" {
		body = strings.TrimSpace(m[2])
	}

	var p Profile
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return Profile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.PrimeDirective) == "" {
		return Profile{}, errors.New("profile is missing name or primeDirective")
	}
	return p, nil
}
