package serrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseError_IsMatchesCode(t *testing.T) {
	sentinel := NewError("AUTHZ_FORBIDDEN", "permission denied", "")
	withData := sentinel.WithTemplateData(map[string]string{"object": "event.events"})

	wrapped := fmt.Errorf("wrapped: %w", withData)
	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, NewError("OTHER", "x", "")))
	assert.Nil(t, sentinel.TemplateData)
}

func TestProcessValidatorErrors(t *testing.T) {
	type dto struct {
		Mode string `validate:"required,oneof=read write"`
		UID  string `validate:"len=11"`
	}
	err := validator.New().Struct(dto{UID: "short"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	out := ProcessValidatorErrors(verrs, func(field string) string {
		if field == "UID" {
			return "uid"
		}
		return ""
	})
	assert.Equal(t, "failed on 'required'", out["Mode"])
	assert.Equal(t, "failed on 'len=11'", out["uid"])
}
