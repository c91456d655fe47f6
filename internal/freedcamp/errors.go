package freedcamp

import (
	"errors"
	"fmt"
)

// ErrUpstream единое условие "вызов Freedcamp не удался".
var ErrUpstream = errors.New("upstream call failed")

// FailureKind откуда пришла ошибка вызова.
type FailureKind string

const (
	// KindTransport соединение, таймаут или не-2xx HTTP.
	KindTransport FailureKind = "transport"
	// KindApplication 2xx по HTTP, но неуспешный статус внутри конверта.
	KindApplication FailureKind = "application"
)

// UpstreamError ошибка вызова Freedcamp с исходным статусом и сообщением.
type UpstreamError struct {
	Method     string
	Path       string
	Kind       FailureKind
	HTTPStatus int
	Code       int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	status := e.HTTPStatus
	if e.Kind == KindApplication && e.Code != 0 {
		status = e.Code
	}
	if status != 0 {
		return fmt.Sprintf("%s: %s %s: status %d: %s", ErrUpstream, e.Method, e.Path, status, msg)
	}
	return fmt.Sprintf("%s: %s %s: %s", ErrUpstream, e.Method, e.Path, msg)
}

// Is позволяет сравнивать с ErrUpstream через errors.Is.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Status возвращает наиболее содержательный код: из конверта, иначе HTTP.
func (e *UpstreamError) Status() int {
	if e.Code != 0 {
		return e.Code
	}
	return e.HTTPStatus
}
