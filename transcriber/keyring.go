package transcriber

import (
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long a rate-limited credential sits out.
const DefaultCooldown = 300 * time.Second

// KeyRing holds a fixed set of credentials with a round-robin cursor and a
// per-key cooldown. Keys are never removed; a rate-limited key just becomes
// unavailable until its cooldown passes.
type KeyRing struct {
	keys     []string
	cooldown time.Duration

	mu     sync.Mutex
	until  map[string]time.Time
	cursor int
	now    func() time.Time
}

func NewKeyRing(keys []string, cooldown time.Duration) (*KeyRing, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &KeyRing{
		keys:     keys,
		cooldown: cooldown,
		until:    make(map[string]time.Time),
		now:      time.Now,
	}, nil
}

// KeysFromEnv collects every non-empty environment variable whose name
// starts with prefix, ordered by name so the ring is deterministic.
func KeysFromEnv(prefix string) []string {
	var names []string
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(name, prefix) && value != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = os.Getenv(name)
	}
	return keys
}

func (r *KeyRing) Len() int {
	return len(r.keys)
}

// Next returns the first available key at or after the cursor, advancing the
// cursor past it. It scans each key at most once; if every key is cooling
// down it reports false.
func (r *KeyRing) Next() (string, bool) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for range r.keys {
		key := r.keys[r.cursor%len(r.keys)]
		r.cursor = (r.cursor + 1) % len(r.keys)
		if r.until[key].Before(now) || r.until[key].Equal(now) {
			return key, true
		}
	}
	return "", false
}

// Cooldown marks key unavailable until now+cooldown and returns that moment.
func (r *KeyRing) Cooldown(key string) time.Time {
	until := r.now().Add(r.cooldown)
	r.mu.Lock()
	r.until[key] = until
	r.mu.Unlock()
	return until
}

// CoolingDown reports whether key is currently in cooldown.
func (r *KeyRing) CoolingDown(key string) bool {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.until[key].After(now)
}
