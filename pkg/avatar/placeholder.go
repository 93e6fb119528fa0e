package avatar

import (
	"encoding/base64"
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

var palette = []string{
	"#ef4444", "#f97316", "#eab308", "#84cc16", "#22c55e",
	"#14b8a6", "#06b6d4", "#3b82f6", "#8b5cf6", "#d946ef",
}

// hashID is the classic 31-multiplier string hash over UTF-16 code units, wrapping at 32 bits
func hashID(s string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(unit)
	}
	return h
}

// PlaceholderColor picks a stable palette colour for id
func PlaceholderColor(id string) string {
	h := int64(hashID(id))
	if h < 0 {
		h = -h
	}
	return palette[h%int64(len(palette))]
}

// placeholderInitial is "C" for an unnamed avatar and empty for a blank name
func placeholderInitial(name string) string {
	if name == "" {
		return "C"
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(trimmed)
	return html.EscapeString(string(unicode.ToUpper(r)))
}

// Placeholder renders a coloured square with the name's initial as an SVG data URI
func Placeholder(id, name string) string {
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100" width="100" height="100">
  <rect width="100" height="100" fill="%s" />
  <text x="50%%" y="50%%" font-family="'Cairo', 'Inter', sans-serif" font-size="50" fill="white" text-anchor="middle" dominant-baseline="central">%s</text>
</svg>`, PlaceholderColor(id), placeholderInitial(name))
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}
