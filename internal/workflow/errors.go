package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/Itinera/internal/domain"
)

// Ошибки контроллера.
var (
	// ErrValidation — не заполнены обязательные поля шага.
	ErrValidation = errors.New("validation failed")

	// ErrProvider — удалённый вызов завершился ошибкой или таймаутом.
	ErrProvider = errors.New("provider call failed")

	// ErrEmptyResult — провайдер не вернул ни одной записи.
	ErrEmptyResult = errors.New("no results")

	// ErrPersistence — не удалось записать статус плана.
	ErrPersistence = errors.New("persistence failed")

	// ErrUnauthenticated — нет пользователя, от имени которого строится план.
	ErrUnauthenticated = errors.New("user not authenticated")

	// ErrInvalidStage — индекс текущего шага вне диапазона 1..4.
	ErrInvalidStage = errors.New("invalid stage index")
)

// StageError — остановка шага.
type StageError struct {
	Kind  domain.FailureKind
	Stage domain.StageKind

	// Fields — пустые обязательные поля (только для validation).
	Fields []string

	Err error
}

// Error реализует интерфейс error.
func (e *StageError) Error() string {
	msg := fmt.Sprintf("stage %s: %s", e.Stage, sentinel(e.Kind))
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap возвращает sentinel вида ошибки и причину.
func (e *StageError) Unwrap() []error {
	errs := []error{sentinel(e.Kind)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func sentinel(kind domain.FailureKind) error {
	switch kind {
	case domain.FailureValidation:
		return ErrValidation
	case domain.FailureEmpty:
		return ErrEmptyResult
	case domain.FailurePersistence:
		return ErrPersistence
	default:
		return ErrProvider
	}
}

// IsStageError проверяет, что ошибка — остановка шага, а не сбой вызова.
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}
