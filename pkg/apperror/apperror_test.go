package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("x").HTTPStatus())
	assert.Equal(t, http.StatusForbidden, Forbidden("x").HTTPStatus())
	assert.Equal(t, http.StatusConflict, Conflict("x").HTTPStatus())
	assert.Equal(t, http.StatusTooManyRequests, Restricted(time.Now(), "x").HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, Validation("x").HTTPStatus())
}

func TestKindMatchingWithErrorsIs(t *testing.T) {
	err := fmt.Errorf("外层包装: %w", Conflict("状态冲突"))

	assert.True(t, errors.Is(err, &Error{Kind: KindConflict}))
	assert.False(t, errors.Is(err, &Error{Kind: KindNotFound}))
}

func TestAsErrorThroughWrapping(t *testing.T) {
	next := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	err := fmt.Errorf("外层包装: %w", Restricted(next, "冷却中"))

	appErr := AsError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, KindRestricted, appErr.Kind)
	require.NotNil(t, appErr.NextAllowedAt)
	assert.True(t, appErr.NextAllowedAt.Equal(next))

	assert.Nil(t, AsError(errors.New("普通错误")))
	assert.Nil(t, AsError(nil))
}
