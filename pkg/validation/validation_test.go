package validation

import (
	"encoding/json"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	FullName  string   `json:"full_name" binding:"required,min=2"`
	Email     string   `json:"email" binding:"required,email"`
	Interests []string `json:"interests" binding:"required,min=1"`
	Consent   bool     `json:"consent" binding:"required"`
	Level     string   `json:"level" binding:"omitempty,oneof=Student Professional"`
}

func TestFieldMessages(t *testing.T) {
	in := sample{FullName: "J", Email: "not-an-email", Level: "Retired"}
	err := binding.Validator.ValidateStruct(&in)
	require.Error(t, err)

	msgs := FieldMessages(err)
	assert.Equal(t, "Full name must be at least 2 characters", msgs["full_name"])
	assert.Equal(t, "Enter a valid email address", msgs["email"])
	assert.Equal(t, "Select at least one interests", msgs["interests"])
	assert.Equal(t, "Consent must be accepted", msgs["consent"])
	assert.Equal(t, "Level must be one of: Student, Professional", msgs["level"])
}

func TestFieldMessages_NonValidationError(t *testing.T) {
	var v sample
	err := json.Unmarshal([]byte(`{"full_name": 3}`), &v)
	require.Error(t, err)
	assert.Nil(t, FieldMessages(err))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Full name", Label("full_name"))
	assert.Equal(t, "", Label(""))
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(sample{FullName: "Jane", Email: "jane@example.com", Interests: []string{"AI"}, Consent: true}))

	msgs := Validate(&sample{FullName: "Jane", Email: "jane@example.com", Interests: []string{}, Consent: true})
	assert.Equal(t, map[string]string{"interests": "Select at least 1 interests"}, msgs)
}
