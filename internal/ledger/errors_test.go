package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := errors.New("execution reverted")
	err := NewError("acceptRequest", ErrorRejected, "Request already assigned", cause)

	assert.Equal(t, "ledger acceptRequest [rejected]: Request already assigned: execution reverted", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("accept: %w", err)
	assert.Equal(t, ErrorRejected, CategoryOf(wrapped))
	assert.Equal(t, "Request already assigned", ReasonOf(wrapped))
}

func TestCategoryOf_ForeignError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, ErrorCategory(""), CategoryOf(err))
	assert.Equal(t, "boom", ReasonOf(err))
	assert.False(t, IsNotFound(err))
	assert.Empty(t, ReasonOf(nil))
}

func TestRecord_Assigned(t *testing.T) {
	assert.False(t, (&Record{Department: ZeroAddress}).Assigned())
	assert.False(t, (&Record{}).Assigned())
	assert.True(t, (&Record{Department: "0xabc"}).Assigned())
}
