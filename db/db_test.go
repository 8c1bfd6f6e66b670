package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"crm/db"
	"crm/db/migrations"
	"crm/internal/domain"
	"crm/models"

	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) *db.Storage {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, db.DriverSQLite, filepath.Join(t.TempDir(), "crm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, migrations.Run(conn.DB, db.Dialect(db.DriverSQLite)))
	return db.NewStorage(conn)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := db.Open(context.Background(), "mysql", "")
	require.Error(t, err)
}

func TestMigrationsVersion(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, filepath.Join(t.TempDir(), "v.db"))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, migrations.Run(conn.DB, "sqlite3"))
	// повторный запуск ничего не делает
	require.NoError(t, migrations.Run(conn.DB, "sqlite3"))

	v, err := migrations.Version(conn.DB, "sqlite3")
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
}

func TestOpportunityStore(t *testing.T) {
	ctx := context.Background()
	store := newStorage(t).Opportunities()

	closeDate := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)
	principal := "principal-1"
	created, err := store.Create(ctx, models.Opportunity{
		Name:                    "Acme - Site Visit",
		OrganizationID:          "org1",
		PrincipalOrganizationID: &principal,
		Stage:                   models.StageNewLead,
		Status:                  models.StatusActive,
		EstimatedValue:          12500.5,
		CloseDate:               &closeDate,
		Context:                 models.ContextSiteVisit,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, models.StageNewLead, created.Stage)
	require.Equal(t, 12500.5, created.EstimatedValue)
	require.Nil(t, created.ContactID)
	require.Equal(t, principal, *created.PrincipalOrganizationID)
	require.True(t, closeDate.Equal(*created.CloseDate))
	require.True(t, created.StageUpdatedAt.Equal(created.CreatedAt))
	require.Nil(t, created.DeletedAt)

	created.Stage = models.StageInitialOutreach
	created.Notes = "called twice"
	updated, err := store.Update(ctx, created)
	require.NoError(t, err)
	require.Equal(t, models.StageInitialOutreach, updated.Stage)
	require.Equal(t, "called twice", updated.Notes)
	require.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	_, err = store.Create(ctx, models.Opportunity{Name: "Beta", OrganizationID: "org2", Stage: models.StageNewLead, Status: models.StatusActive})
	require.NoError(t, err)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestOpportunityStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := newStorage(t).Opportunities()

	_, err := store.FindByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Update(ctx, models.Opportunity{ID: "missing", Name: "x", OrganizationID: "org1"})
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.ErrorIs(t, store.Delete(ctx, "missing"), domain.ErrNotFound)
	require.ErrorIs(t, store.SoftDelete(ctx, "missing"), domain.ErrNotFound)
}

func TestOpportunityStoreSoftDelete(t *testing.T) {
	ctx := context.Background()
	store := newStorage(t).Opportunities()

	o, err := store.Create(ctx, models.Opportunity{Name: "Acme", OrganizationID: "org1", Stage: models.StageNewLead, Status: models.StatusActive})
	require.NoError(t, err)

	require.NoError(t, store.SoftDelete(ctx, o.ID))
	_, err = store.FindByID(ctx, o.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	// удаленную запись нельзя удалить повторно или изменить
	require.ErrorIs(t, store.SoftDelete(ctx, o.ID), domain.ErrNotFound)
	_, err = store.Update(ctx, o)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// физическое удаление видит помеченные записи
	require.NoError(t, store.Delete(ctx, o.ID))
}

func TestOrganizationStore(t *testing.T) {
	ctx := context.Background()
	store := newStorage(t).Organizations()

	manager := "user-7"
	sysco, err := store.Create(ctx, models.Organization{
		Name:          "Sysco",
		Type:          models.OrganizationDistributor,
		Priority:      models.PriorityB,
		Segment:       "Broadline",
		IsDistributor: true,
		Email:         "buyers@sysco.example",
		City:          "Houston",
		ManagerID:     &manager,
	})
	require.NoError(t, err)
	require.True(t, sysco.IsDistributor)
	require.False(t, sysco.IsPrincipal)
	require.Equal(t, models.PriorityB, sysco.Priority)
	require.Equal(t, manager, *sysco.ManagerID)

	_, err = store.Create(ctx, models.Organization{Name: "Acme Foods", Type: models.OrganizationCustomer, Priority: models.PriorityA, Segment: "Fine Dining"})
	require.NoError(t, err)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Acme Foods", all[0].Name)
	require.Equal(t, "Sysco", all[1].Name)

	sysco.Segment = "Regional"
	sysco.IsPrincipal = true
	updated, err := store.Update(ctx, sysco)
	require.NoError(t, err)
	require.Equal(t, "Regional", updated.Segment)
	require.True(t, updated.IsPrincipal)

	require.NoError(t, store.SoftDelete(ctx, sysco.ID))
	_, err = store.FindByID(ctx, sysco.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
