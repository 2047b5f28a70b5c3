package errs_test

import (
	"errors"
	"testing"

	"github.com/mkrause/junta/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := errs.Wrap(errs.Transport, "dial", cause)

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Transport))
	assert.False(t, errs.Is(err, errs.Encoding))
	assert.ErrorIs(t, err, cause)
}

func TestNewHasNoCause(t *testing.T) {
	err := errs.New(errs.InvalidRequest, "no arm matched")
	assert.Nil(t, err.Unwrap())
	assert.Contains(t, err.Error(), "invalid request")
}
