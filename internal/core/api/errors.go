package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/extgen/internal/types"
)

// Error mapping for handlers. Auth errors are mapped in the auth interceptor.
//   - authoring and validation errors -> INVALID_ARGUMENT
//   - missing snippets -> NOT_FOUND
//   - context timeouts -> DEADLINE_EXCEEDED
//   - catalog failures -> UNAVAILABLE
func toStatus(err error) error {
	switch {
	case errors.Is(err, types.ErrUnsupportedOperator),
		errors.Is(err, types.ErrInvalidExtension):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, types.ErrSnippetNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
