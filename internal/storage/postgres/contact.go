package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sarit-store/internal/domain/contact"
)

const (
	contactColumns = `id::text, name, email, phone, comment, created_at`

	insertContactSQL = `INSERT INTO contact_messages (name, email, phone, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text`

	contactSearch = `($1 = '%%' OR name ILIKE $1 ESCAPE '\' OR email ILIKE $1 ESCAPE '\'
		OR phone ILIKE $1 ESCAPE '\' OR comment ILIKE $1 ESCAPE '\')`

	listContactsSQL = `SELECT ` + contactColumns + `, count(*) OVER ()
		FROM contact_messages
		WHERE ` + contactSearch + `
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	countContactsSQL = `SELECT count(*) FROM contact_messages WHERE ` + contactSearch
)

var _ contact.Repository = (*ContactRepository)(nil)

// ContactRepository stores contact form messages.
type ContactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository returns a ContactRepository that uses the given pool.
func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

// Insert stores m and sets its ID.
func (r *ContactRepository) Insert(ctx context.Context, m *contact.Message) error {
	err := r.pool.QueryRow(ctx, insertContactSQL, m.Name, m.Email, m.Phone, m.Comment, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("inserting contact message: %w", err)
	}
	return nil
}

// List returns a page of messages, newest first, and the total match count.
func (r *ContactRepository) List(ctx context.Context, q contact.ListQuery) ([]contact.Message, int, error) {
	pattern := containsPattern(q.Search)
	rows, err := r.pool.Query(ctx, listContactsSQL, pattern, q.Page.Limit, q.Page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing contact messages: %w", err)
	}

	var total int
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contact.Message, error) {
		var m contact.Message
		err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Comment, &m.CreatedAt, &total)
		return m, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing contact messages: %w", err)
	}
	if len(items) == 0 && q.Page.Offset() > 0 {
		// Past the last page the window count is unavailable.
		if err := r.pool.QueryRow(ctx, countContactsSQL, pattern).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("counting contact messages: %w", err)
		}
	}
	return items, total, nil
}
