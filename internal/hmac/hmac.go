package hmac

import (
	cryptoHMAC "crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const separator = "."

// HMAC is a utility for creating and verifying HMACs
type HMAC struct {
	Key []byte
}

// Create creates a HMAC of the message, encoded as urlsafe base64
func (h *HMAC) Create(message string) (string, error) {
	mac := cryptoHMAC.New(sha256.New, h.Key)

	_, err := mac.Write([]byte(message))
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Validate validates that the message matches a given HMAC
func (h *HMAC) Validate(message, mac string) (bool, error) {
	expectedMAC, err := h.Create(message)
	if err != nil {
		return false, err
	}

	return cryptoHMAC.Equal([]byte(mac), []byte(expectedMAC)), nil
}

// Sign returns a token of the form message.mac
func (h *HMAC) Sign(message string) (string, error) {
	mac, err := h.Create(message)
	if err != nil {
		return "", err
	}

	return message + separator + mac, nil
}

// Open verifies a token created by Sign and returns the message it carries
func (h *HMAC) Open(token string) (string, bool) {
	i := strings.LastIndex(token, separator)
	if i <= 0 {
		return "", false
	}

	message, mac := token[:i], token[i+1:]
	matches, err := h.Validate(message, mac)
	if err != nil || !matches {
		return "", false
	}

	return message, true
}
