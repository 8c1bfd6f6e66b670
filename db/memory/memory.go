// Package memory - хранилище в памяти с тем же контрактом, что и db.Storage.
// Используется в тестах и при DB_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"crm/internal/domain"
	"crm/models"

	"github.com/google/uuid"
)

// Entity - требования к записи, которую умеет хранить Repository
type Entity[T any] interface {
	*T
	Key() string
	Clone() T
	IsDeleted() bool
	Stamp(id string, now time.Time)
	Touch(now time.Time)
	MarkDeleted(now time.Time)
}

// Repository хранит копии записей; наружу всегда отдаются копии
type Repository[T any, P Entity[T]] struct {
	entity string
	mu     sync.RWMutex
	items  map[string]T
	now    func() time.Time
}

func NewRepository[T any, P Entity[T]](entity string) *Repository[T, P] {
	return &Repository[T, P]{
		entity: entity,
		items:  make(map[string]T),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewOpportunities - репозиторий сделок
func NewOpportunities() *Repository[models.Opportunity, *models.Opportunity] {
	return NewRepository[models.Opportunity]("opportunity")
}

// NewOrganizations - репозиторий организаций
func NewOrganizations() *Repository[models.Organization, *models.Organization] {
	return NewRepository[models.Organization]("organization")
}

var (
	_ domain.Repository[models.Opportunity]  = (*Repository[models.Opportunity, *models.Opportunity])(nil)
	_ domain.Repository[models.Organization] = (*Repository[models.Organization, *models.Organization])(nil)
)

func (r *Repository[T, P]) FindByID(_ context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok || P(&item).IsDeleted() {
		var zero T
		return zero, domain.NotFoundError{Entity: r.entity, ID: id}
	}
	return P(&item).Clone(), nil
}

// FindAll возвращает неудаленные записи в порядке создания
func (r *Repository[T, P]) FindAll(_ context.Context) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, 0, len(r.items))
	for _, item := range r.items {
		if !P(&item).IsDeleted() {
			out = append(out, P(&item).Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return P(&out[i]).Key() < P(&out[j]).Key()
	})
	return out, nil
}

func (r *Repository[T, P]) Create(_ context.Context, entity T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// uuid v7 упорядочен по времени, поэтому FindAll сохраняет порядок создания
	id, err := uuid.NewV7()
	if err != nil {
		var zero T
		return zero, err
	}
	P(&entity).Stamp(id.String(), r.now())
	r.items[id.String()] = P(&entity).Clone()
	return entity, nil
}

func (r *Repository[T, P]) Update(_ context.Context, entity T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := P(&entity).Key()
	current, ok := r.items[id]
	if !ok || P(&current).IsDeleted() {
		var zero T
		return zero, domain.NotFoundError{Entity: r.entity, ID: id}
	}
	P(&entity).Touch(r.now())
	r.items[id] = P(&entity).Clone()
	return entity, nil
}

func (r *Repository[T, P]) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.NotFoundError{Entity: r.entity, ID: id}
	}
	delete(r.items, id)
	return nil
}

func (r *Repository[T, P]) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || P(&item).IsDeleted() {
		return domain.NotFoundError{Entity: r.entity, ID: id}
	}
	P(&item).MarkDeleted(r.now())
	r.items[id] = item
	return nil
}
