package screenshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIsDeterministic(t *testing.T) {
	a := Hash([]byte("proof bytes"))
	b := Hash([]byte("proof bytes"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "sha256 hex digest")
}

func TestHashDiffersOnContent(t *testing.T) {
	a := Hash([]byte("proof bytes"))
	b := Hash([]byte("proof bytes!"))
	assert.NotEqual(t, a, b)
}

func TestHashEmptyInput(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Hash(nil))
}
