// Package lease provides keyed mutual exclusion with bounded waits and
// expiring leases, so a crashed holder never blocks a key forever.
package lease

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrBusy is returned when a key stays held for longer than the wait budget
var ErrBusy = errors.New("lease: key is held by another owner")

// ReleaseFunc gives the lease back. Calling it more than once is a no-op.
type ReleaseFunc func()

// Locker acquires exclusive leases on string keys
type Locker interface {
	Acquire(ctx context.Context, key string) (ReleaseFunc, error)
}

// Options configures waiting and expiry
type Options struct {
	Wait time.Duration // how long Acquire blocks before returning ErrBusy
	TTL  time.Duration // lease lifetime if never released
}

// DefaultOptions returns the default lease options
func DefaultOptions() Options {
	return Options{
		Wait: 5 * time.Second,
		TTL:  30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Wait <= 0 {
		o.Wait = def.Wait
	}
	if o.TTL <= 0 {
		o.TTL = def.TTL
	}
	return o
}

// Key helpers for the resources guarded by the booking core

// RoomKey is the lease key for booking decisions on one room
func RoomKey(roomID string) string {
	return "room:" + roomID
}

// GuestKey is the lease key for guest upserts, case-insensitive on email
func GuestKey(email string) string {
	return "guest:" + strings.ToLower(strings.TrimSpace(email))
}

// SettingsKey is the lease key for the admin settings singleton
const SettingsKey = "admin-settings"

func newToken() string {
	return uuid.NewString()
}
