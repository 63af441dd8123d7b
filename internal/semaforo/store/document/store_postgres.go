package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"semaforo/internal/semaforo"
	id "semaforo/pkg/domain"
	"semaforo/pkg/platform/sentinel"
	txcontext "semaforo/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists documents in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed document store.
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

const documentColumns = `id, organization_id, category, title, issue_date, active, created_at, updated_at`

// Create inserts doc, superseding the active document of a singleton category
// in the same transaction.
func (s *PostgresStore) Create(ctx context.Context, doc *semaforo.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		conn := s.conn(ctx)
		if doc.Active && doc.Category.IsSingleton() {
			_, err := conn.ExecContext(ctx, `
				UPDATE documents SET active = FALSE, updated_at = $3
				WHERE organization_id = $1 AND category = $2 AND active
			`, doc.OrganizationID.String(), string(doc.Category), doc.CreatedAt)
			if err != nil {
				return fmt.Errorf("supersede document: %w", err)
			}
		}
		_, err := conn.ExecContext(ctx, `
			INSERT INTO documents (`+documentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, doc.ID.String(), doc.OrganizationID.String(), string(doc.Category), doc.Title,
			nullDate(doc.IssueDate), doc.Active, doc.CreatedAt, doc.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("create document %s: %w", doc.ID, sentinel.ErrConflict)
			}
			return fmt.Errorf("create document: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Update(ctx context.Context, doc *semaforo.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE documents SET title = $2, issue_date = $3, updated_at = $4
		WHERE id = $1 AND active
	`, doc.ID.String(), doc.Title, nullDate(doc.IssueDate), doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireOneRow(res)
}

// SoftDelete marks the document inactive and returns its final state.
func (s *PostgresStore) SoftDelete(ctx context.Context, docID id.DocumentID, at time.Time) (*semaforo.Document, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		UPDATE documents SET active = FALSE, updated_at = $2
		WHERE id = $1 AND active
		RETURNING `+documentColumns, docID.String(), at)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("delete document: %w", err)
	}
	return doc, nil
}

// FindByID returns active documents only.
func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*semaforo.Document, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE id = $1 AND active
	`, docID.String())
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) FindActiveByOrganization(ctx context.Context, orgID id.OrganizationID) ([]semaforo.Document, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE organization_id = $1 AND active
		ORDER BY created_at, id
	`, orgID.String())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return collectDocuments(rows)
}

func (s *PostgresStore) FindActiveByOrgAndCategory(ctx context.Context, orgID id.OrganizationID, category semaforo.Category) ([]semaforo.Document, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE organization_id = $1 AND category = $2 AND active
		ORDER BY created_at, id
	`, orgID.String(), string(category))
	if err != nil {
		return nil, fmt.Errorf("list documents by category: %w", err)
	}
	return collectDocuments(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*semaforo.Document, error) {
	var (
		doc       semaforo.Document
		docID     string
		orgID     string
		category  string
		issueDate sql.NullTime
	)
	if err := row.Scan(&docID, &orgID, &category, &doc.Title, &issueDate,
		&doc.Active, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	parsedDoc, err := id.ParseDocumentID(docID)
	if err != nil {
		return nil, fmt.Errorf("scan document id: %w", err)
	}
	parsedOrg, err := id.ParseOrganizationID(orgID)
	if err != nil {
		return nil, fmt.Errorf("scan organization id: %w", err)
	}
	doc.ID = parsedDoc
	doc.OrganizationID = parsedOrg
	// Unknown categories are kept as read; the aggregator ignores them.
	doc.Category = semaforo.Category(category)
	if issueDate.Valid {
		doc.IssueDate = semaforo.DateOf(issueDate.Time)
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]semaforo.Document, error) {
	defer rows.Close()
	docs := make([]semaforo.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func nullDate(d semaforo.Date) sql.NullTime {
	if !d.Valid() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.Time(), Valid: true}
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
