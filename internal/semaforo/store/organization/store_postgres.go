package organization

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"semaforo/internal/semaforo"
	id "semaforo/pkg/domain"
	"semaforo/pkg/platform/sentinel"
	txcontext "semaforo/pkg/platform/tx"
)

// PostgresStore reads organizations and owns their denormalized semaforo and
// detalles columns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed organization store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Create inserts org with the initial RED cache.
func (s *PostgresStore) Create(ctx context.Context, org *semaforo.Organization) error {
	if org == nil {
		return fmt.Errorf("organization is required")
	}
	initial := semaforo.InitialCachedStatus()
	detalles, err := json.Marshal(initial.Detalles)
	if err != nil {
		return fmt.Errorf("marshal initial detalles: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO organizations (id, name, org_type, active, semaforo, detalles)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, org.ID.String(), org.Name, string(org.Type), org.Active, string(initial.Semaforo), detalles)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create organization %s: %w", org.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetActive(ctx context.Context, orgID id.OrganizationID, active bool) error {
	res, err := s.conn(ctx).ExecContext(ctx, `UPDATE organizations SET active = $2 WHERE id = $1`, orgID.String(), active)
	if err != nil {
		return fmt.Errorf("set organization active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrganizationID) (*semaforo.Organization, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, org_type, active FROM organizations WHERE id = $1 AND active
	`, orgID.String())
	org, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return org, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]semaforo.Organization, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, name, org_type, active FROM organizations WHERE active ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]semaforo.Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, *org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}
	return orgs, nil
}

// Save writes semaforo and detalles in one UPDATE so readers never observe
// one without the other.
func (s *PostgresStore) Save(ctx context.Context, orgID id.OrganizationID, status semaforo.CachedStatus) error {
	detalles, err := json.Marshal(status.Detalles)
	if err != nil {
		return fmt.Errorf("marshal detalles: %w", err)
	}
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE organizations SET semaforo = $2, detalles = $3 WHERE id = $1
	`, orgID.String(), string(status.Semaforo), detalles)
	if err != nil {
		return fmt.Errorf("save semaforo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, orgID id.OrganizationID) (*semaforo.CachedStatus, error) {
	var (
		status   string
		detalles []byte
	)
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT semaforo, detalles FROM organizations WHERE id = $1 AND active
	`, orgID.String()).Scan(&status, &detalles)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find semaforo: %w", err)
	}
	return decodeCached(status, detalles)
}

func (s *PostgresStore) FindMany(ctx context.Context, orgIDs []id.OrganizationID) (map[id.OrganizationID]semaforo.CachedStatus, error) {
	out := make(map[id.OrganizationID]semaforo.CachedStatus, len(orgIDs))
	if len(orgIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(orgIDs))
	for i, orgID := range orgIDs {
		keys[i] = orgID.String()
	}
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, semaforo, detalles FROM organizations WHERE id = ANY($1::uuid[])
	`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("find semaforos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rawID    string
			status   string
			detalles []byte
		)
		if err := rows.Scan(&rawID, &status, &detalles); err != nil {
			return nil, fmt.Errorf("scan semaforo: %w", err)
		}
		orgID, err := id.ParseOrganizationID(rawID)
		if err != nil {
			return nil, fmt.Errorf("scan organization id: %w", err)
		}
		cached, err := decodeCached(status, detalles)
		if err != nil {
			return nil, err
		}
		out[orgID] = *cached
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate semaforos: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*semaforo.Organization, error) {
	var (
		org     semaforo.Organization
		rawID   string
		orgType string
	)
	if err := row.Scan(&rawID, &org.Name, &orgType, &org.Active); err != nil {
		return nil, err
	}
	orgID, err := id.ParseOrganizationID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan organization id: %w", err)
	}
	org.ID = orgID
	org.Type = semaforo.OrgType(orgType)
	return &org, nil
}

// decodeCached keeps stored values verbatim; an unknown semaforo string is
// folded into rojo by the statistics reducer, not here.
func decodeCached(status string, detalles []byte) (*semaforo.CachedStatus, error) {
	cached := semaforo.CachedStatus{Semaforo: semaforo.Status(status)}
	if err := json.Unmarshal(detalles, &cached.Detalles); err != nil {
		return nil, fmt.Errorf("decode detalles: %w", err)
	}
	return &cached, nil
}
