package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/hmis-dev/hmis-sdk/pkg/constants"
	"github.com/hmis-dev/hmis-sdk/pkg/serrors"
)

func validateDTO(dto any) error {
	err := constants.Validate.Struct(dto)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return serrors.ProcessValidatorErrors(verrs, nil)
	}
	return err
}
