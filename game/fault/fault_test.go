package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("guild %d not found", 7)))
	assert.Equal(t, KindConflict, KindOf(Conflict("guild is full")))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("insufficient rank")))
	assert.Equal(t, KindInvalidInput, KindOf(InvalidInput("amount must be positive")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("contribute: %w", Conflict("duplicate"))
	assert.True(t, IsKind(err, KindConflict))
}

func TestErrorMessage(t *testing.T) {
	err := NotFound("raid %d not found", 3)
	assert.EqualError(t, err, "raid 3 not found")
	assert.Equal(t, "not_found", KindOf(err).String())
}
