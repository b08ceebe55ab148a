package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	c := NewRedisCache("localhost:0", "order")
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, "order:place:u1:key-1", c.GenerateKey("place", "u1:key-1"))
}
