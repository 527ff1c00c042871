package validate

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	var v Error
	require.NoError(t, v.Err())

	v.Require("email", "  ")
	v.Require("phone", "555")
	v.Add("items", "at least one item is required")

	err := v.Err()
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []FieldError{
		{Field: "email", Message: "email is required"},
		{Field: "items", Message: "at least one item is required"},
	}, verr.Fields)
	assert.Contains(t, err.Error(), "email: email is required")
}
