package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	"fundline/internal/domain"
)

func (r Repo) UpsertProfile(ctx context.Context, p domain.Profile) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO profiles(actor_id,email,role,created_at) VALUES (?,?,?,?)
		 ON CONFLICT(actor_id) DO UPDATE SET email=excluded.email, role=excluded.role`,
		p.ActorID, nullable(p.Email), string(p.Role), p.CreatedAt)
	return err
}

func (r Repo) GetProfile(ctx context.Context, actorID string) (domain.Profile, error) {
	var p domain.Profile
	var email sql.NullString
	var role string
	err := r.DB.QueryRowContext(ctx, `SELECT actor_id,email,role,created_at FROM profiles WHERE actor_id=?`, actorID).
		Scan(&p.ActorID, &email, &role, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	rl, err := domain.ParseRole(role)
	if err != nil {
		return p, err
	}
	p.Role = rl
	p.Email = email.String
	return p, nil
}

func (r Repo) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT actor_id,email,role,created_at FROM profiles ORDER BY actor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Profile
	for rows.Next() {
		var p domain.Profile
		var email sql.NullString
		var role string
		if err := rows.Scan(&p.ActorID, &email, &role, &p.CreatedAt); err != nil {
			return nil, err
		}
		rl, err := domain.ParseRole(role)
		if err != nil {
			return nil, err
		}
		p.Role = rl
		p.Email = email.String
		res = append(res, p)
	}
	return res, rows.Err()
}

// HashAPIKey derives the stored digest of a raw key. Raw keys are never
// persisted.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (r Repo) InsertAPIKey(ctx context.Context, k domain.APIKey) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO api_keys(id,actor_id,name,key_hash,created_at) VALUES (?,?,?,?,?)`,
		k.ID, k.ActorID, nullable(k.Name), k.KeyHash, k.CreatedAt)
	return err
}

func (r Repo) GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	var k domain.APIKey
	var name sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,actor_id,name,key_hash,created_at FROM api_keys WHERE key_hash=?`, hash).
		Scan(&k.ID, &k.ActorID, &name, &k.KeyHash, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return k, ErrNotFound
	}
	if err != nil {
		return k, err
	}
	k.Name = name.String
	return k, nil
}

func (r Repo) ListAPIKeys(ctx context.Context, actorID string) ([]domain.APIKey, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,actor_id,name,key_hash,created_at FROM api_keys WHERE actor_id=? ORDER BY created_at, id`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.APIKey
	for rows.Next() {
		var k domain.APIKey
		var name sql.NullString
		if err := rows.Scan(&k.ID, &k.ActorID, &name, &k.KeyHash, &k.CreatedAt); err != nil {
			return nil, err
		}
		k.Name = name.String
		res = append(res, k)
	}
	return res, rows.Err()
}

func (r Repo) DeleteAPIKey(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM api_keys WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- calc scenarios ---

func (r Repo) InsertScenario(ctx context.Context, s domain.CalcScenario) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO calc_scenarios(id,name,inputs_json,created_by,created_at) VALUES (?,?,?,?,?)`,
		s.ID, s.Name, s.InputsJSON, s.CreatedBy, s.CreatedAt)
	return err
}

func (r Repo) GetScenario(ctx context.Context, id string) (domain.CalcScenario, error) {
	var s domain.CalcScenario
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,inputs_json,created_by,created_at FROM calc_scenarios WHERE id=?`, id).
		Scan(&s.ID, &s.Name, &s.InputsJSON, &s.CreatedBy, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) ListScenarios(ctx context.Context) ([]domain.CalcScenario, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,inputs_json,created_by,created_at FROM calc_scenarios ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CalcScenario
	for rows.Next() {
		var s domain.CalcScenario
		if err := rows.Scan(&s.ID, &s.Name, &s.InputsJSON, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) DeleteScenario(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM calc_scenarios WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
