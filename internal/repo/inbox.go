package repo

import (
	"context"
	"database/sql"

	"fundline/internal/domain"
)

// --- documents ---

func (r Repo) InsertDocument(ctx context.Context, d domain.Document) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO documents(id,customer_id,name,kind,storage_key,uploaded_by,created_at) VALUES (?,?,?,?,?,?,?)`,
		d.ID, d.CustomerID, d.Name, nullable(d.Kind), d.StorageKey, d.UploadedBy, d.CreatedAt)
	return err
}

func (r Repo) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	var d domain.Document
	var kind sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,customer_id,name,kind,storage_key,uploaded_by,created_at FROM documents WHERE id=?`, id).
		Scan(&d.ID, &d.CustomerID, &d.Name, &kind, &d.StorageKey, &d.UploadedBy, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.Kind = kind.String
	return d, nil
}

func (r Repo) ListDocuments(ctx context.Context, customerID string) ([]domain.Document, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,customer_id,name,kind,storage_key,uploaded_by,created_at FROM documents WHERE customer_id=? ORDER BY created_at DESC, id DESC`,
		customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Document
	for rows.Next() {
		var d domain.Document
		var kind sql.NullString
		if err := rows.Scan(&d.ID, &d.CustomerID, &d.Name, &kind, &d.StorageKey, &d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Kind = kind.String
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) DeleteDocument(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- messages ---

func scanMessage(scan func(dest ...any) error) (domain.Message, error) {
	var m domain.Message
	var body sql.NullString
	var read int
	err := scan(&m.ID, &m.CustomerID, &m.SenderID, &m.Subject, &body, &read, &m.CreatedAt)
	if err != nil {
		return m, err
	}
	m.Body = body.String
	m.Read = read != 0
	return m, nil
}

func (r Repo) InsertMessage(ctx context.Context, m domain.Message) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO messages(id,customer_id,sender_id,subject,body,read,created_at) VALUES (?,?,?,?,?,?,?)`,
		m.ID, m.CustomerID, m.SenderID, m.Subject, nullable(m.Body), boolInt(m.Read), m.CreatedAt)
	return err
}

type MessageFilters struct {
	CustomerID string
	UnreadOnly bool
	Limit      int
}

func (r Repo) ListMessages(ctx context.Context, f MessageFilters) ([]domain.Message, error) {
	query := `SELECT id,customer_id,sender_id,subject,body,read,created_at FROM messages WHERE 1=1`
	var args []any
	if f.CustomerID != "" {
		query += " AND customer_id=?"
		args = append(args, f.CustomerID)
	}
	if f.UnreadOnly {
		query += " AND read=0"
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r Repo) MarkMessageRead(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE messages SET read=1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountUnreadMessages(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM messages WHERE read=0`).Scan(&n)
	return n, err
}
