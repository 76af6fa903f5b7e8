package login

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionTokenBytes gives 256 bits of entropy per session id.
const sessionTokenBytes = 32

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
