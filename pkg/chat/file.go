package chat

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LoadAttachment reads a file from disk into an embedded attachment. The MIME type
// comes from the extension, falling back to content sniffing.
func LoadAttachment(path string) (*Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	// Drop parameters such as "; charset=utf-8"
	if base, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = base
	}

	return &Attachment{
		Name:     filepath.Base(path),
		DataURI:  EncodeDataURI(mimeType, data),
		MIMEType: mimeType,
	}, nil
}
