package usecase

import (
	"cleaning-booking/pkg/apperror"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

func validateRequest(log *zap.Logger, op string, req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		log.Warn(op+" validation failed", zap.Any("errors", errs))
		return apperror.Validation("Validation failed: "+utils.FormatValidationErrors(errs), errs)
	}
	return nil
}

func invalidID(field string) error {
	return apperror.Validation("Invalid "+field, map[string]string{field: "Must be a valid UUID"})
}
