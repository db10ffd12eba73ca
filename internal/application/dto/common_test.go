package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Normalize(t *testing.T) {
	assert.Equal(t, PageRequest{Limit: DefaultPageLimit}, PageRequest{}.Normalize())
	assert.Equal(t, PageRequest{Limit: MaxPageLimit, Offset: 40}, PageRequest{Limit: 500, Offset: 40}.Normalize())
	assert.Equal(t, PageRequest{Limit: 5}, PageRequest{Limit: 5, Offset: -3}.Normalize())
}
