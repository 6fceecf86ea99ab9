package retry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jonathan/apply-agent/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	cause := errors.New("node not visible")
	err := &Error{Kind: types.ErrTimeout, Op: "click next", Selector: "button.next", Message: "gave up", Cause: cause}

	assert.Equal(t, "automation error (Timeout) click next [button.next]: gave up: node not visible", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("listing 7: %w", Errorf(types.ErrStepStuck, "next never enabled"))

	assert.Equal(t, types.ErrStepStuck, KindOf(wrapped))
	assert.Equal(t, types.ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, types.ErrorKind(""), KindOf(nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(types.ErrElementNotFound))
	assert.True(t, Retryable(types.ErrTimeout))
	assert.False(t, Retryable(types.ErrStructuralChange))
	assert.False(t, Retryable(types.ErrUnexpectedNavigation))
	assert.False(t, Retryable(types.ErrChallengeDetected))
}
