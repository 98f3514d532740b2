package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRandomKey(t *testing.T) {
	a := GenerateRandomKey()
	b := GenerateRandomKey()
	assert.Len(t, a, KeySize)
	assert.NotEqual(t, a, b)
}
