package service

import (
	"context"
	"strconv"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// notFoundOr maps a missing row to a NOT_FOUND error for resource and anything else through MapError.
func notFoundOr(err error, resource string, details map[string]any) error {
	if repository.IsNotFound(err) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

func loadUser(ctx context.Context, users repository.UserRepository, id int64, resource string) (*domain.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, resource, map[string]any{resource + "_id": id})
	}
	return user, nil
}

func stringPtr(s string) *string {
	return &s
}

func idString(id *int64) *string {
	if id == nil {
		return nil
	}
	return stringPtr(strconv.FormatInt(*id, 10))
}
