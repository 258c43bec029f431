package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required,max=8"`
	Kind  string `json:"kind" validate:"required,oneof=a b"`
	Count int    `json:"count" validate:"gte=0"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	errs, ok := v.Validate(sample{Name: "ok", Kind: "a"})
	assert.True(t, ok)
	assert.Empty(t, errs)

	errs, ok = v.Validate(sample{Kind: "c", Count: -1})
	require.False(t, ok)
	require.Len(t, errs, 3)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "REQUIRED", errs[0].Code)
	assert.Equal(t, "kind must be one of [a b]", errs[1].Message)
	assert.Equal(t, "count must be at least 0", errs[2].Message)

	assert.EqualError(t, Join(errs[:2]), "name is required; kind must be one of [a b]")
	assert.NoError(t, Join(nil))
}
