// Package strpool recycles string builders for hot key derivations.
package strpool

import (
	"strings"
	"sync"
)

var pool = sync.Pool{
	New: func() interface{} {
		return &strings.Builder{}
	},
}

func Get() *strings.Builder {
	b := pool.Get().(*strings.Builder)
	b.Reset()
	return b
}

func Put(b *strings.Builder) {
	if b == nil {
		return
	}
	pool.Put(b)
}

// Join writes parts separated by sep with a pooled builder.
func Join(sep byte, parts ...string) string {
	b := Get()
	defer Put(b)

	for i, p := range parts {
		if i > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(p)
	}
	return b.String()
}
