package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPtr(t *testing.T) {
	p := Ptr("value")
	assert.Equal(t, "value", *p)

	n := Ptr(uint(5))
	*n = 6
	assert.Equal(t, uint(6), *n)
}

