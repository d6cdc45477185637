package transcriber

import (
	"testing"
	"time"
)

func testRing(t *testing.T, keys ...string) *KeyRing {
	t.Helper()
	ring, err := NewKeyRing(keys, DefaultCooldown)
	if err != nil {
		t.Fatalf("NewKeyRing: %v", err)
	}
	return ring
}

func TestNewKeyRingEmpty(t *testing.T) {
	if _, err := NewKeyRing(nil, DefaultCooldown); err != ErrNoKeys {
		t.Errorf("err = %v, want ErrNoKeys", err)
	}
}

func TestNextRoundRobin(t *testing.T) {
	ring := testRing(t, "a", "b", "c")

	var got []string
	for range 6 {
		key, ok := ring.Next()
		if !ok {
			t.Fatal("Next returned no key")
		}
		got = append(got, key)
	}

	want := []string{"a", "b", "c", "a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", got, want)
		}
	}
}

func TestNextSkipsCoolingKeys(t *testing.T) {
	ring := testRing(t, "a", "b", "c")
	ring.Cooldown("a")

	for range 4 {
		key, ok := ring.Next()
		if !ok {
			t.Fatal("Next returned no key")
		}
		if key == "a" {
			t.Fatal("Next returned a cooling key")
		}
	}
}

func TestNextAllCooling(t *testing.T) {
	ring := testRing(t, "a", "b")
	ring.Cooldown("a")
	ring.Cooldown("b")

	if key, ok := ring.Next(); ok {
		t.Errorf("Next = %q, want none", key)
	}
}

func TestCooldownExpires(t *testing.T) {
	ring := testRing(t, "a")
	now := time.Now()
	ring.now = func() time.Time { return now }

	ring.Cooldown("a")
	if _, ok := ring.Next(); ok {
		t.Fatal("key available during cooldown")
	}

	now = now.Add(DefaultCooldown + time.Second)
	key, ok := ring.Next()
	if !ok || key != "a" {
		t.Errorf("Next = %q, %v after cooldown, want a, true", key, ok)
	}
}

func TestCoolingDown(t *testing.T) {
	ring := testRing(t, "a", "b")
	ring.Cooldown("b")

	if ring.CoolingDown("a") {
		t.Error("a should be available")
	}
	if !ring.CoolingDown("b") {
		t.Error("b should be cooling down")
	}
}

func TestKeysFromEnv(t *testing.T) {
	t.Setenv("MURMUR_TEST_KEY_2", "second")
	t.Setenv("MURMUR_TEST_KEY_1", "first")
	t.Setenv("MURMUR_TEST_KEY_EMPTY", "")

	keys := KeysFromEnv("MURMUR_TEST_KEY_")
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	if keys[0] != "first" || keys[1] != "second" {
		t.Errorf("keys = %v, want [first second]", keys)
	}
}
