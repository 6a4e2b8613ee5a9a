// Package pool recycles the scratch buffers used to render query keys.
//
// Every cached query is rendered to a canonical string before the cache is
// consulted, so the builders and key slices behind that rendering are
// allocated on every read. Pooling them keeps hot read paths from feeding
// the GC.
//
// Usage:
//
//	b := pool.GetBuilder()
//	defer pool.PutBuilder(b)
//
//	b.WriteString("key")
//	s := b.String()
package pool

import (
	"sync"
)

// Config configures pooling behavior.
type Config struct {
	// Enabled controls whether pooling is active
	Enabled bool

	// MaxCap is the largest capacity, in bytes for builders and elements
	// for slices, that is returned to a pool.
	MaxCap int
}

var globalConfig = Config{
	Enabled: true,
	MaxCap:  64 * 1024,
}

// Configure sets global pool configuration.
// Should be called early during initialization.
func Configure(config Config) {
	globalConfig = config
}

// IsEnabled reports whether pooling is active.
func IsEnabled() bool {
	return globalConfig.Enabled
}

// =============================================================================
// Builder Pool
// =============================================================================

var builderPool = sync.Pool{
	New: func() any {
		return &Builder{buf: make([]byte, 0, 256)}
	},
}

// Builder is a poolable string builder.
type Builder struct {
	buf []byte
}

// WriteString appends a string to the builder.
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a byte to the builder.
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// String returns the built string.
func (b *Builder) String() string {
	return string(b.buf)
}

// Len returns current length.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// GetBuilder returns an empty builder.
func GetBuilder() *Builder {
	if !globalConfig.Enabled {
		return &Builder{buf: make([]byte, 0, 256)}
	}
	b := builderPool.Get().(*Builder)
	b.Reset()
	return b
}

// PutBuilder returns a builder to the pool. The builder must not be used
// afterwards.
func PutBuilder(b *Builder) {
	if !globalConfig.Enabled || b == nil {
		return
	}
	if cap(b.buf) > globalConfig.MaxCap {
		return
	}
	b.Reset()
	builderPool.Put(b)
}

// =============================================================================
// String Slice Pool
// =============================================================================

var stringsPool = sync.Pool{
	New: func() any {
		s := make([]string, 0, 16)
		return &s
	},
}

// GetStrings returns an empty string slice.
func GetStrings() *[]string {
	if !globalConfig.Enabled {
		s := make([]string, 0, 16)
		return &s
	}
	s := stringsPool.Get().(*[]string)
	*s = (*s)[:0]
	return s
}

// PutStrings returns a string slice to the pool.
func PutStrings(s *[]string) {
	if !globalConfig.Enabled || s == nil {
		return
	}
	if cap(*s) > globalConfig.MaxCap {
		return
	}
	clear(*s)
	*s = (*s)[:0]
	stringsPool.Put(s)
}
