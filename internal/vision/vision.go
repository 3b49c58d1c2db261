// Package vision wraps the vision-capable language model that reads event
// details out of a document photograph.
package vision

import (
	"context"
	"encoding/base64"
	"strings"
)

// Image is one still image submitted for extraction.
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURL encodes the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Extractor is the vision collaborator. Extract returns the model's reply
// verbatim; no schema is enforced on it.
type Extractor interface {
	Extract(ctx context.Context, img Image) (string, error)
}

// StripCodeFence removes a Markdown code fence that models sometimes wrap
// around JSON despite being asked not to.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
