package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Signer binds session ids to SESSION_SECRET so a guessed or tampered cookie
// is rejected before it reaches the store.
type Signer struct{ secret []byte }

func NewSigner(secret string) Signer { return Signer{secret: []byte(secret)} }

func (s Signer) Sign(id string) string {
	return id + "." + s.mac(id)
}

// Verify returns the session id embedded in token when the signature matches.
func (s Signer) Verify(token string) (string, bool) {
	i := strings.LastIndexByte(token, '.')
	if i <= 0 || i == len(token)-1 {
		return "", false
	}
	id, sig := token[:i], token[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(id))) {
		return "", false
	}
	return id, true
}

func (s Signer) mac(id string) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}
