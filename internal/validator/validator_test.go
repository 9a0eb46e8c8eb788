package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ConversationID string   `json:"conversationId" validate:"required,entity-id"`
	ParticipantIDs []string `json:"participantIds" validate:"omitempty,max=3,dive,entity-id"`
	Text           string   `json:"text" validate:"max=5"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(&sample{ConversationID: "c1", ParticipantIDs: []string{"u1", "u2"}, Text: "hi"}))
}

func TestValidate_FieldNamesFromJSON(t *testing.T) {
	v := New()

	err := v.Validate(&sample{
		ParticipantIDs: []string{"u1", "bad id"},
		Text:           strings.Repeat("x", 6),
	})
	require.Error(t, err)

	vErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "This field is required", vErr.Errors["conversationId"])
	assert.Contains(t, vErr.Errors, "participantIds[1]")
	assert.Equal(t, "Must be at most 5", vErr.Errors["text"])
}

func TestEntityID_TooLong(t *testing.T) {
	v := New()
	err := v.Validate(&sample{ConversationID: strings.Repeat("a", maxEntityIDLength+1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversationId")
}

func TestValidateVar(t *testing.T) {
	v := New()
	assert.NoError(t, v.ValidateVar("conversationId", "c1", "required,entity-id"))

	err := v.ValidateVar("conversationId", "c 1", "required,entity-id")
	require.Error(t, err)
	vErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Contains(t, vErr.Errors["conversationId"], "without spaces")
}
