package service

import (
	"errors"

	apperrors "luvrix-giveaway-engine/internal/common/errors"
	"luvrix-giveaway-engine/internal/features/giveaway/repository"
	"luvrix-giveaway-engine/internal/metrics"
)

func giveawayErr(operation, giveawayID string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	return apperrors.FromPersistence(operation, err)
}

func participantErr(operation, giveawayID string, userID int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewParticipantNotFoundError(giveawayID, userID)
	}
	return apperrors.FromPersistence(operation, err)
}

// observe counts failed operations by error code. Use with a named error result:
//
//	defer observe("join", &err)
func observe(operation string, err *error) {
	if *err == nil {
		return
	}
	code := string(apperrors.ErrCodeInternal)
	if appErr, ok := apperrors.AsAppError(*err); ok {
		code = string(appErr.Code)
	}
	metrics.OperationErrors.WithLabelValues(operation, code).Inc()
}
