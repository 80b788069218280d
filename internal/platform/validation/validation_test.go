package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recipient struct {
	Email string `json:"email" validate:"required,email"`
}

type payload struct {
	To      []recipient `json:"to" validate:"required,min=1,dive"`
	Subject string      `json:"subject" validate:"required"`
}

func TestValidate_ReportsJSONFieldPaths(t *testing.T) {
	err := New().Validate(payload{To: []recipient{{Email: "a@x.com"}, {Email: "nope"}}})
	require.Error(t, err)

	body := ErrorResponse(err)
	assert.Equal(t, "validation_failed", body.Error)
	assert.Equal(t, []string{"required"}, body.Fields["subject"])
	assert.Equal(t, []string{"email"}, body.Fields["to[1].email"])
}

func TestValidate_EmptyRecipientList(t *testing.T) {
	err := New().Validate(payload{To: []recipient{}, Subject: "hi"})
	require.Error(t, err)
	assert.Equal(t, []string{"min"}, ErrorResponse(err).Fields["to"])
}

func TestErrorResponse_PlainError(t *testing.T) {
	body := ErrorResponse(errors.New("bad json"))
	assert.Equal(t, "bad json", body.Error)
	assert.Empty(t, body.Fields)
}
