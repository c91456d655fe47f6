package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/DevN0mad/FreedcampMCP/internal/freedcamp"
	"github.com/DevN0mad/FreedcampMCP/internal/normalize"
)

// Category класс ошибки инструмента, по которому агент решает, что делать дальше.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryForbidden  Category = "forbidden"
	CategoryTransient  Category = "transient"
	CategoryUpstream   Category = "upstream"
	CategoryIntegrity  Category = "integrity"
	CategoryInternal   Category = "internal"
)

// ErrInvalidInput параметры вызова не прошли проверку; запрос наружу не уходил.
var ErrInvalidInput = errors.New("invalid input")

// ToolError ошибка с категорией. Текст берется из обернутой ошибки.
type ToolError struct {
	Category Category
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Invalid создает ошибку валидации входа.
func Invalid(format string, args ...any) *ToolError {
	return &ToolError{
		Category: CategoryValidation,
		Err:      fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...)),
	}
}

// Classify определяет категорию ошибки.
func Classify(err error) Category {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Category
	}
	if errors.Is(err, ErrInvalidInput) {
		return CategoryValidation
	}
	if errors.Is(err, normalize.ErrIntegrity) {
		return CategoryIntegrity
	}

	var ue *freedcamp.UpstreamError
	if errors.As(err, &ue) {
		switch ue.Status() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return CategoryForbidden
		case http.StatusNotFound:
			return CategoryNotFound
		}
		if ue.Kind == freedcamp.KindTransport {
			return CategoryTransient
		}
		return CategoryUpstream
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}
	return CategoryInternal
}

// Retryable имеет ли смысл повторить тот же вызов.
func (c Category) Retryable() bool {
	return c == CategoryTransient
}

// Failure полезная нагрузка неуспешного вызова.
type Failure struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Category Category `json:"category"`
}

// FailureOf строит Failure из ошибки.
func FailureOf(err error) Failure {
	return Failure{Success: false, Message: err.Error(), Category: Classify(err)}
}
