package repository

import (
	"context"
	stderrors "errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskmate/pkg/errors"
)

// translateError maps raw store errors into the app taxonomy. No grpc or
// firestore error type leaks past this package.
func translateError(err error, resource string) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout("Store operation timed out", err)
	}

	switch status.Code(err) {
	case codes.NotFound:
		return errors.NotFound(resource, err)
	case codes.AlreadyExists:
		return errors.Conflict(resource + " already exists")
	case codes.DeadlineExceeded:
		return errors.Timeout("Store operation timed out", err)
	case codes.PermissionDenied:
		return errors.Forbidden("Store rejected the operation", err)
	}

	return errors.Internal("Store operation failed", err)
}
