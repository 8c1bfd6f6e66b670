package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crm/internal/domain"
	"crm/models"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx для database/sql
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite" // sqlite без cgo
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc регистрирует драйвер как "sqlite", sqlx знает только "sqlite3"
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open подключается к базе и проверяет соединение
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres, DriverPgx, DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	conn, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// один писатель, иначе "database is locked" при параллельных запросах
		conn.SetMaxOpenConns(1)
	}
	return conn, nil
}

// Dialect - имя диалекта goose для драйвера
func Dialect(driver string) string {
	if driver == DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}

type Storage struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		db: db,
		// postgres хранит микросекунды, обрезаем заранее
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Opportunities() *OpportunityStore {
	return &OpportunityStore{s}
}

func (s *Storage) Organizations() *OrganizationStore {
	return &OrganizationStore{s}
}

var (
	_ domain.Repository[models.Opportunity]  = (*OpportunityStore)(nil)
	_ domain.Repository[models.Organization] = (*OrganizationStore)(nil)
)

// Opportunity (Сделка)
type OpportunityStore struct {
	*Storage
}

const opportunityColumns = `id, name, organization_id, contact_id, principal_organization_id,
        stage, status, estimated_value, close_date, notes, context,
        stage_updated_at, created_at, updated_at, deleted_at`

func (s *OpportunityStore) FindByID(ctx context.Context, id string) (models.Opportunity, error) {
	var o models.Opportunity
	query := s.db.Rebind(`SELECT ` + opportunityColumns + ` FROM opportunity WHERE id = ? AND deleted_at IS NULL`)
	err := s.db.GetContext(ctx, &o, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return o, domain.NotFoundError{Entity: "opportunity", ID: id}
	}
	if err != nil {
		return o, fmt.Errorf("get opportunity %s: %w", id, err)
	}
	return o, nil
}

func (s *OpportunityStore) FindAll(ctx context.Context) ([]models.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunity
        WHERE deleted_at IS NULL
        ORDER BY created_at ASC, id ASC`
	opps := []models.Opportunity{}
	if err := s.db.SelectContext(ctx, &opps, query); err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	return opps, nil
}

func (s *OpportunityStore) Create(ctx context.Context, o models.Opportunity) (models.Opportunity, error) {
	o.Stamp(uuid.NewString(), s.now())
	if o.StageUpdatedAt.IsZero() {
		o.StageUpdatedAt = o.CreatedAt
	}
	query := `
        INSERT INTO opportunity
            (id, name, organization_id, contact_id, principal_organization_id,
             stage, status, estimated_value, close_date, notes, context,
             stage_updated_at, created_at, updated_at)
        VALUES
            (:id, :name, :organization_id, :contact_id, :principal_organization_id,
             :stage, :status, :estimated_value, :close_date, :notes, :context,
             :stage_updated_at, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, query, o); err != nil {
		return models.Opportunity{}, fmt.Errorf("insert opportunity: %w", err)
	}
	return s.FindByID(ctx, o.ID)
}

// Update сохраняет запись и возвращает ее состояние из базы
func (s *OpportunityStore) Update(ctx context.Context, o models.Opportunity) (models.Opportunity, error) {
	o.Touch(s.now())
	query := `
        UPDATE opportunity
        SET name=:name, organization_id=:organization_id, contact_id=:contact_id,
            principal_organization_id=:principal_organization_id, stage=:stage, status=:status,
            estimated_value=:estimated_value, close_date=:close_date, notes=:notes, context=:context,
            stage_updated_at=:stage_updated_at, updated_at=:updated_at
        WHERE id=:id AND deleted_at IS NULL`
	res, err := s.db.NamedExecContext(ctx, query, o)
	if err != nil {
		return models.Opportunity{}, fmt.Errorf("update opportunity %s: %w", o.ID, err)
	}
	if err := expectRow(res, "opportunity", o.ID); err != nil {
		return models.Opportunity{}, err
	}
	return s.FindByID(ctx, o.ID)
}

func (s *OpportunityStore) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, "opportunity", id)
}

func (s *OpportunityStore) SoftDelete(ctx context.Context, id string) error {
	return s.softDelete(ctx, "opportunity", id)
}

// Organization (Организация)
type OrganizationStore struct {
	*Storage
}

const organizationColumns = `id, name, type, priority, segment, is_principal, is_distributor,
        description, notes, industry, email, phone, website,
        address_line1, city, state, postal_code, country, manager_id,
        created_at, updated_at, deleted_at`

func (s *OrganizationStore) FindByID(ctx context.Context, id string) (models.Organization, error) {
	var o models.Organization
	query := s.db.Rebind(`SELECT ` + organizationColumns + ` FROM organization WHERE id = ? AND deleted_at IS NULL`)
	err := s.db.GetContext(ctx, &o, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return o, domain.NotFoundError{Entity: "organization", ID: id}
	}
	if err != nil {
		return o, fmt.Errorf("get organization %s: %w", id, err)
	}
	return o, nil
}

func (s *OrganizationStore) FindAll(ctx context.Context) ([]models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organization
        WHERE deleted_at IS NULL
        ORDER BY name ASC, id ASC`
	orgs := []models.Organization{}
	if err := s.db.SelectContext(ctx, &orgs, query); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

func (s *OrganizationStore) Create(ctx context.Context, o models.Organization) (models.Organization, error) {
	o.Stamp(uuid.NewString(), s.now())
	query := `
        INSERT INTO organization
            (id, name, type, priority, segment, is_principal, is_distributor,
             description, notes, industry, email, phone, website,
             address_line1, city, state, postal_code, country, manager_id,
             created_at, updated_at)
        VALUES
            (:id, :name, :type, :priority, :segment, :is_principal, :is_distributor,
             :description, :notes, :industry, :email, :phone, :website,
             :address_line1, :city, :state, :postal_code, :country, :manager_id,
             :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, query, o); err != nil {
		return models.Organization{}, fmt.Errorf("insert organization: %w", err)
	}
	return s.FindByID(ctx, o.ID)
}

func (s *OrganizationStore) Update(ctx context.Context, o models.Organization) (models.Organization, error) {
	o.Touch(s.now())
	query := `
        UPDATE organization
        SET name=:name, type=:type, priority=:priority, segment=:segment,
            is_principal=:is_principal, is_distributor=:is_distributor,
            description=:description, notes=:notes, industry=:industry,
            email=:email, phone=:phone, website=:website,
            address_line1=:address_line1, city=:city, state=:state,
            postal_code=:postal_code, country=:country, manager_id=:manager_id,
            updated_at=:updated_at
        WHERE id=:id AND deleted_at IS NULL`
	res, err := s.db.NamedExecContext(ctx, query, o)
	if err != nil {
		return models.Organization{}, fmt.Errorf("update organization %s: %w", o.ID, err)
	}
	if err := expectRow(res, "organization", o.ID); err != nil {
		return models.Organization{}, err
	}
	return s.FindByID(ctx, o.ID)
}

func (s *OrganizationStore) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, "organization", id)
}

func (s *OrganizationStore) SoftDelete(ctx context.Context, id string) error {
	return s.softDelete(ctx, "organization", id)
}

// table подставляется только из констант выше
func (s *Storage) delete(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	return expectRow(res, table, id)
}

func (s *Storage) softDelete(ctx context.Context, table, id string) error {
	now := s.now()
	query := s.db.Rebind(`UPDATE ` + table + ` SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`)
	res, err := s.db.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return fmt.Errorf("soft delete %s %s: %w", table, id, err)
	}
	return expectRow(res, table, id)
}

func expectRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
