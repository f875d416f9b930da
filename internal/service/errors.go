package service

import "errors"

var (
	// ErrQuizNotFound means the quiz id is unknown.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizStarted blocks joining once the quiz is underway.
	ErrQuizStarted = errors.New("quiz already started")
	// ErrQuizEnded blocks every mutation once the quiz is closed.
	ErrQuizEnded = errors.New("quiz is ended")
	// ErrUpstream covers classification service transport failures and
	// non-success statuses. Not retried.
	ErrUpstream = errors.New("classification service request failed")
)

// InvalidModelOutputError is returned when the model payload is not parseable
// JSON. The raw text is carried for operator debugging, never discarded.
type InvalidModelOutputError struct {
	RawOutput string
}

func (e *InvalidModelOutputError) Error() string {
	return "model returned invalid JSON"
}
