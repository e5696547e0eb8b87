package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrRoomFull       = fmt.Errorf("room is full")
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrSinkFull       = fmt.Errorf("connection sink is full")
	ErrSinkClosed     = fmt.Errorf("connection sink is closed")
	ErrMalformedEvent = fmt.Errorf("malformed event")
	ErrUnknownEvent   = fmt.Errorf("unknown event")
)

// MapToGRPCError translates relay errors into gRPC status errors.
// Unknown errors are reported as Internal.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, ErrRoomFull):
		return status.Error(codes.ResourceExhausted, err.Error())
	case stderrors.Is(err, ErrMalformedEvent), stderrors.Is(err, ErrUnknownEvent):
		return status.Error(codes.InvalidArgument, err.Error())
	case stderrors.Is(err, ErrSinkFull):
		return status.Error(codes.Unavailable, err.Error())
	case stderrors.Is(err, ErrSinkClosed):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
