package authclient

import "errors"

var (
	// ErrNoToken is returned when login or register succeeded without a token.
	ErrNoToken = errors.New("server did not return a token")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrManagerClosed is returned by operations called after Close.
	ErrManagerClosed = errors.New("session manager closed")
	// ErrClientRequired is returned by Build without a SessionClient.
	ErrClientRequired = errors.New("session client required")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrSessionReplaced is returned when another operation replaced the
	// session while this one was in flight.
	ErrSessionReplaced = errors.New("session replaced by a concurrent operation")
)

// OperationError is a failed user-facing operation. Message is the text to
// show; Err is the cause.
type OperationError struct {
	Op      string
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message returns the user-facing text of err when it is an OperationError,
// and err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Message
	}
	return err.Error()
}
