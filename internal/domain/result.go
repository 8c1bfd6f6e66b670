// Package domain содержит общие примитивы бизнес-слоя: результат операции,
// нарушения бизнес-правил, контракт хранилища и журнал доменных событий.
package domain

import (
	"errors"
	"fmt"
)

// Result - итог операции: либо значение, либо сообщение об ошибке
type Result[T any] struct {
	value T
	err   string
	ok    bool
}

// Success создает успешный результат
func Success[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Failure создает неуспешный результат с сообщением
func Failure[T any](message string) Result[T] {
	return Result[T]{err: message}
}

func Failuref[T any](format string, args ...any) Result[T] {
	return Failure[T](fmt.Sprintf(format, args...))
}

// FailureFrom переводит ошибку в результат, сохраняя ее текст
func FailureFrom[T any](err error) Result[T] {
	if err == nil {
		return Failure[T]("unknown error")
	}
	return Failure[T](err.Error())
}

func (r Result[T]) IsSuccess() bool { return r.ok }
func (r Result[T]) IsFailure() bool { return !r.ok }

// Value возвращает значение; для неуспешного результата - нулевое значение T
func (r Result[T]) Value() T { return r.value }

// Message возвращает сообщение об ошибке или пустую строку.
func (r Result[T]) Message() string { return r.err }

// Get возвращает результат в привычной для Go форме (значение, ошибка)
func (r Result[T]) Get() (T, error) {
	if r.ok {
		return r.value, nil
	}
	return r.value, errors.New(r.err)
}
