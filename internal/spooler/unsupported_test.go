//go:build !windows

package spooler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNative_Unavailable(t *testing.T) {
	assert.False(t, Available)
	assert.Nil(t, Native())
}
