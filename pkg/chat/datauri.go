package chat

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrMalformedAttachment = errors.New("malformed attachment data uri")

var mimePattern = regexp.MustCompile(`:(.*?);`)

// ParseDataURI splits a base64 data URI into its MIME type and decoded payload
func ParseDataURI(uri string) (string, []byte, error) {
	header, payload, found := strings.Cut(uri, ",")
	if !found || !strings.HasPrefix(header, "data:") {
		return "", nil, fmt.Errorf("%w: missing data header", ErrMalformedAttachment)
	}

	match := mimePattern.FindStringSubmatch(header)
	if len(match) < 2 || match[1] == "" {
		return "", nil, fmt.Errorf("%w: missing mime type", ErrMalformedAttachment)
	}
	if !strings.HasSuffix(header, ";base64") {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrMalformedAttachment)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedAttachment, err)
	}
	return match[1], data, nil
}

func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// MIMETypeFromDataURI reads the type segment without decoding, falling back to fallback
func MIMETypeFromDataURI(uri, fallback string) string {
	head, _, _ := strings.Cut(uri, ";")
	_, mime, found := strings.Cut(head, ":")
	if !found || mime == "" {
		return fallback
	}
	return mime
}
