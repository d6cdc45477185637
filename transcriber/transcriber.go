package transcriber

import (
	"errors"
	"strings"
)

// Client is the remote capability the capture pipeline consumes:
// speech-to-text for finished segments and chat completion for transcript
// post-processing. Both rotate over the same credential ring.
type Client interface {
	Name() string
	Transcribe(audio []byte, format string) (string, error)
	Complete(systemPrompt, userText string) (string, error)
}

var (
	// ErrNoKeys means no credentials were configured at startup.
	ErrNoKeys = errors.New("no API keys configured")

	// ErrKeysExhausted means every credential was tried once within a single
	// call (or was already cooling down) and none succeeded.
	ErrKeysExhausted = errors.New("all API keys failed or are cooling down")
)

// Providers signal rate limiting with inconsistent status lines and error
// bodies, so classification is by message token.
var rateLimitTokens = []string{
	"rate limit", "429", "limit", "quota", "too many", "overloaded",
}

func isRateLimited(msg string) bool {
	lower := strings.ToLower(msg)
	for _, token := range rateLimitTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// IsRateLimited reports whether err should be treated as a rate-limit
// failure: either the provider said so, or the whole ring is cooling down.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrKeysExhausted) {
		return true
	}
	return isRateLimited(err.Error())
}

func keyPreview(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "..."
}
