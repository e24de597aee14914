package adminweb

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const tokenAction = "import"

// tokenSigner issues and checks HMAC-signed form tokens of the form
// "<issued unix seconds>.<signature>".
type tokenSigner struct {
	secret []byte
	ttl    time.Duration
}

func newTokenSigner(secret []byte, ttl time.Duration) (*tokenSigner, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	return &tokenSigner{secret: secret, ttl: ttl}, nil
}

func (s *tokenSigner) issue(now time.Time) string {
	issued := strconv.FormatInt(now.Unix(), 10)
	return issued + "." + s.sign(issued)
}

func (s *tokenSigner) verify(token string, now time.Time) bool {
	issued, sig, ok := strings.Cut(token, ".")
	if !ok || issued == "" || sig == "" {
		return false
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(issued))) {
		return false
	}
	unix, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return false
	}
	if s.ttl > 0 && now.Sub(time.Unix(unix, 0)) > s.ttl {
		return false
	}
	return true
}

func (s *tokenSigner) sign(issued string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(tokenAction + "|" + issued))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
