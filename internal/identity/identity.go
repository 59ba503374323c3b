// Package identity maps a physical device to a stable pseudonymous
// identifier, independent of the display name a player picks.
package identity

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const storageKey = "device_id"

// Store is the minimal local key-value contract the resolver needs.
// A missing key is ("", nil), not an error.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// DeviceID returns the persisted identifier, minting and storing one
// on first use. Any store failure degrades to an unpersisted per-call
// id: the device will look like a new one on every launch, which is
// accepted rather than retried.
func (r *Resolver) DeviceID() string {
	id, err := r.store.Get(storageKey)
	if err != nil {
		return Synthesize()
	}
	if id != "" {
		return id
	}
	id = derive()
	if err := r.store.Set(storageKey, id); err != nil {
		return Synthesize()
	}
	return id
}

// Reset drops the persisted id so the next call mints a fresh one.
func (r *Resolver) Reset() error {
	return r.store.Remove(storageKey)
}

// derive prefers host metadata and falls back to a synthesized id.
func derive() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return Synthesize()
	}
	return sanitize(host + "_" + runtime.GOOS)
}

// Synthesize builds a platform_timestamp_random identifier. It is also
// handed out to clients that lost their own local storage.
func Synthesize() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return sanitize(runtime.GOOS) + "_" + ts + "_" + suffix
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
