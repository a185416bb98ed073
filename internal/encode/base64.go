package encode

import (
	"encoding/base64"
	"fmt"
	"strings"
)

func DecodeBase64String(value string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(value)
}

func EncodeBase64String(value []byte) string {
	return base64.StdEncoding.EncodeToString(value)
}

// DecodeAudioPayload decodes a base64 audio payload as submitted by browser
// recorders. Payloads may arrive bare or wrapped in a data URL
// ("data:audio/webm;base64,...."); both forms decode to the same bytes.
func DecodeAudioPayload(value string) ([]byte, error) {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "data:audio/") {
		idx := strings.Index(trimmed, ";base64,")
		if idx < 0 {
			return nil, fmt.Errorf("audio data URL is not base64 encoded")
		}
		trimmed = trimmed[idx+len(";base64,"):]
	}

	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return decoded, nil
}
