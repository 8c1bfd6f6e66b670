package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound возвращается хранилищем, если запись отсутствует или удалена
var ErrNotFound = errors.New("not found")

// NotFoundError уточняет, какая запись не найдена
type NotFoundError struct {
	Entity string
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

// Repository - контракт хранилища, через который работает бизнес-слой.
// Create назначает идентификатор и даты, Update возвращает сохраненное состояние.
// Видимость записей (права доступа) обеспечивает реализация.
type Repository[T any] interface {
	FindByID(ctx context.Context, id string) (T, error)
	FindAll(ctx context.Context) ([]T, error)
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, entity T) (T, error)
	Delete(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
}
