package store

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsMonotonic(t *testing.T) {
	prev := NewID()
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.Greater(t, id, prev)
		prev = id
	}

	_, err := ulid.ParseStrict(prev)
	assert.NoError(t, err)
}
