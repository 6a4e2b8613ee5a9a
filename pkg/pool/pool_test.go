package pool

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigure(t *testing.T) {
	orig := globalConfig
	defer Configure(orig)

	Configure(Config{Enabled: true, MaxCap: 500})
	assert.True(t, IsEnabled())
	assert.Equal(t, 500, globalConfig.MaxCap)

	Configure(Config{Enabled: false, MaxCap: 500})
	assert.False(t, IsEnabled())

	b := GetBuilder()
	b.WriteString("x")
	PutBuilder(b)
	assert.Equal(t, 0, GetBuilder().Len(), "disabled pools hand out fresh builders")
}

func TestBuilder(t *testing.T) {
	b := GetBuilder()
	b.WriteString("ab")
	_ = b.WriteByte('c')
	assert.Equal(t, "abc", b.String())
	assert.Equal(t, 3, b.Len())

	s := b.String()
	PutBuilder(b)

	again := GetBuilder()
	assert.Equal(t, 0, again.Len())
	again.WriteString("zz")
	assert.Equal(t, "abc", s, "strings survive the builder's reuse")
	PutBuilder(again)
}

func TestBuilder_HugeNotPooled(t *testing.T) {
	orig := globalConfig
	defer Configure(orig)
	Configure(Config{Enabled: true, MaxCap: 8})

	b := GetBuilder()
	b.WriteString(strings.Repeat("x", 1024))
	PutBuilder(b)
	PutBuilder(nil)
}

func TestStrings(t *testing.T) {
	s := GetStrings()
	assert.Empty(t, *s)
	*s = append(*s, "a", "b")
	PutStrings(s)

	again := GetStrings()
	assert.Empty(t, *again)
	PutStrings(again)
	PutStrings(nil)
}

func TestConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b := GetBuilder()
				b.WriteString("key")
				assert.Equal(t, "key", b.String())
				PutBuilder(b)

				s := GetStrings()
				*s = append(*s, "v")
				assert.Len(t, *s, 1)
				PutStrings(s)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkBuilder(b *testing.B) {
	for i := 0; i < b.N; i++ {
		sb := GetBuilder()
		sb.WriteString("\"kind\"=[\"string:person\"]")
		_ = sb.String()
		PutBuilder(sb)
	}
}
