// internal/repository/clients.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"agency-crm/internal/models"
)

type ClientRepo struct {
	db *sql.DB
}

func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

const clientColumns = `id, submission_id, name, email, phone, service, message,
	status, assigned_to, created_at, updated_at`

// CreateTx inserts the client inside the conversion transaction so the client
// row and the submission flip commit together or not at all.
func (r *ClientRepo) CreateTx(ctx context.Context, tx *sql.Tx, c *models.Client) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO clients (id, submission_id, name, email, phone, service, message, status, assigned_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		c.ID, c.SubmissionID, c.Name, nullString(c.Email), c.Phone, c.Service,
		nullString(c.Message), c.Status, nullString(c.AssignedTo), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (r *ClientRepo) GetByID(ctx context.Context, id string) (*models.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	c, err := scanClient(row)
	if err != nil {
		return nil, err
	}

	notes, err := r.listNotes(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Notes = notes
	return c, nil
}

func (r *ClientRepo) List(ctx context.Context, assignedTo string, limit, offset int) ([]*models.Client, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if assignedTo != "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+clientColumns+` FROM clients WHERE assigned_to = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			assignedTo, limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []*models.Client
	for rows.Next() {
		var (
			c                           models.Client
			email, message, assignedCol sql.NullString
		)
		if err := rows.Scan(
			&c.ID, &c.SubmissionID, &c.Name, &email, &c.Phone, &c.Service, &message,
			&c.Status, &assignedCol, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.Email = fromNullString(email)
		c.Message = fromNullString(message)
		c.AssignedTo = fromNullString(assignedCol)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *ClientRepo) AddNote(ctx context.Context, n *models.ClientNote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO client_notes (id, client_id, content, added_by, added_at)
		VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.ClientID, n.Content, n.AddedBy, n.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("insert client note: %w", err)
	}
	return nil
}

func (r *ClientRepo) listNotes(ctx context.Context, clientID string) ([]models.ClientNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client_id, content, added_by, added_at
		FROM client_notes WHERE client_id = $1 ORDER BY added_at DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client notes: %w", err)
	}
	defer rows.Close()

	var out []models.ClientNote
	for rows.Next() {
		var n models.ClientNote
		if err := rows.Scan(&n.ID, &n.ClientID, &n.Content, &n.AddedBy, &n.AddedAt); err != nil {
			return nil, fmt.Errorf("scan client note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanClient(row *sql.Row) (*models.Client, error) {
	var (
		c                        models.Client
		email, message, assigned sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.SubmissionID, &c.Name, &email, &c.Phone, &c.Service, &message,
		&c.Status, &assigned, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Email = fromNullString(email)
	c.Message = fromNullString(message)
	c.AssignedTo = fromNullString(assigned)
	return &c, nil
}
