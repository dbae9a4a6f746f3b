package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrappedError(t *testing.T) {
	base := InvalidTransition("orders.Transition", "completed", "ready")
	wrapped := fmt.Errorf("api: %w", base)

	assert.Equal(t, KindInvalidTransition, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindInvalidTransition))
	assert.True(t, errors.Is(wrapped, &Error{Kind: KindInvalidTransition}))
	assert.False(t, errors.Is(wrapped, &Error{Kind: KindNotFound}))
	assert.Contains(t, base.Error(), `"completed"`)
	assert.Contains(t, base.Error(), `"ready"`)
}

func TestRemoteUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Remote("docstore.Get", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindRemoteOperationFailed, KindOf(err))
}

func TestValidationFieldsMessage(t *testing.T) {
	err := ValidationFields("accounts.Create", map[string]string{"phone": "обязательное поле", "email": "неверный формат"})

	assert.Equal(t, "accounts.Create: ValidationError: некорректные данные формы [email: неверный формат] [phone: обязательное поле]", err.Error())
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
