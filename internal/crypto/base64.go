package crypto

import (
	"encoding/base64"
	"strings"
)

// ToBase64 encodes bytes to standard base64 with padding. All binary values
// on the wire and in the config file use this form.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromBase64 decodes standard base64 (with padding) to bytes.
func FromBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// DecodeBase64 decodes base64 leniently. Standard and URL-safe alphabets are
// accepted, with or without padding, and embedded whitespace is ignored.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")

	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	data, err = base64.RawStdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	data, err = base64.URLEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	return base64.RawURLEncoding.DecodeString(s)
}
