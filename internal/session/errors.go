package session

import "errors"

var (
	ErrInvalidArgs      = errors.New("invalid arguments")
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room already has two players")
	ErrDuplicateSession = errors.New("identity already connected to this room")
	ErrRoomFinished     = errors.New("room already finished")
	ErrEngineStopped    = errors.New("session engine stopped")
	ErrRoomIDExhausted  = errors.New("failed to allocate room id")
)

// errorCode maps sentinel errors onto client-facing error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrDuplicateSession):
		return "duplicate_session"
	case errors.Is(err, ErrRoomFinished):
		return "room_finished"
	case errors.Is(err, ErrInvalidArgs):
		return "bad_request"
	default:
		return "join_failed"
	}
}
