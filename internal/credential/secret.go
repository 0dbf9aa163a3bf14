// Package credential holds API keys in memguard-protected memory and supplies
// them to clients that authenticate against remote services.
package credential

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Secret is an immutable API key kept in a locked buffer.
type Secret struct {
	mu  sync.RWMutex
	buf *memguard.LockedBuffer
}

// NewSecret copies value into locked memory. An empty value yields an empty
// Secret rather than nil.
func NewSecret(value string) *Secret {
	if value == "" {
		return &Secret{}
	}
	return &Secret{buf: memguard.NewBufferFromBytes([]byte(value))}
}

// IsEmpty reports whether the secret holds no usable value.
func (s *Secret) IsEmpty() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf == nil || !s.buf.IsAlive() || s.buf.Size() == 0
}

// Reveal returns a plaintext copy. The copy lives in ordinary memory, so
// callers should keep it only as long as the request that needs it.
func (s *Secret) Reveal() string {
	if s.IsEmpty() {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return string(s.buf.Bytes())
}

// Destroy wipes the secret. Subsequent calls to Reveal return "".
func (s *Secret) Destroy() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf != nil {
		s.buf.Destroy()
		s.buf = nil
	}
}

// String never exposes the value.
func (s *Secret) String() string {
	if s.IsEmpty() {
		return "<empty>"
	}
	return "<redacted>"
}

// Init arms memguard's interrupt handler so locked buffers are wiped on Ctrl-C.
func Init() {
	memguard.CatchInterrupt()
}

// Purge destroys all locked buffers. Call before process exit.
func Purge() {
	memguard.Purge()
}
