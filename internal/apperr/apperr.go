// Package apperr описывает виды ошибок, которые видит оператор консоли.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind - вид ошибки (не тип исключения).
type Kind string

const (
	KindValidation                 Kind = "ValidationError"
	KindInvalidTransition          Kind = "InvalidTransition"
	KindPreconditionNotMet         Kind = "PreconditionNotMet"
	KindRemoteOperationFailed      Kind = "RemoteOperationFailed"
	KindPartialNotificationFailure Kind = "PartialNotificationFailure"
	KindNotFound                   Kind = "NotFound"
	KindUnauthorized               Kind = "Unauthorized"
	KindForbidden                  Kind = "Forbidden"
)

// Error - ошибка приложения с видом, операцией и сообщениями по полям.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " [%s: %s]", k, e.Fields[k])
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is позволяет сравнивать ошибки по виду: errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf возвращает вид ошибки; для посторонних ошибок - пустую строку.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind проверяет вид ошибки по всей цепочке.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// ValidationFields - ошибка валидации с сообщениями для конкретных полей формы.
func ValidationFields(op string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: "некорректные данные формы", Fields: fields}
}

func InvalidTransition(op, from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Op:      op,
		Message: fmt.Sprintf("переход из статуса %q в %q запрещен", from, to),
	}
}

func PreconditionNotMet(op, message string) *Error {
	return &Error{Kind: KindPreconditionNotMet, Op: op, Message: message}
}

func NotFound(op, what string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: what + " не найден"}
}

// Remote оборачивает сбой внешнего хранилища, провайдера или канала.
func Remote(op string, err error) *Error {
	return &Error{Kind: KindRemoteOperationFailed, Op: op, Message: "внешняя операция не выполнена", Err: err}
}

func Unauthorized(op, message string) *Error {
	return &Error{Kind: KindUnauthorized, Op: op, Message: message}
}

func Forbidden(op, message string) *Error {
	return &Error{Kind: KindForbidden, Op: op, Message: message}
}
