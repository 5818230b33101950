package utils

import (
	"encoding/base64"
	"strings"
)

// DecodeBase64 decodes base64 content as returned by the GitHub contents
// API, which inserts line breaks into the encoded payload.
func DecodeBase64(content string) ([]byte, error) {
	cleaned := strings.ReplaceAll(content, "\n", "")
	cleaned = strings.ReplaceAll(cleaned, "\r", "")
	return base64.StdEncoding.DecodeString(cleaned)
}
