package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"fundline/internal/domain"
)

// --- lenders ---

const lenderColumns = `id,name,min_amount,max_amount,min_credit_score,industries_json,paper_grade,contact_name,contact_email,phone,notes,active,created_at,updated_at`

func scanLender(scan func(dest ...any) error) (domain.Lender, error) {
	var l domain.Lender
	var score sql.NullInt64
	var industries, grade, cname, cemail, phone, notes sql.NullString
	var active int
	err := scan(&l.ID, &l.Name, &l.MinAmount, &l.MaxAmount, &score, &industries, &grade,
		&cname, &cemail, &phone, &notes, &active, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return l, err
	}
	if score.Valid {
		l.MinCreditScore = int(score.Int64)
	}
	if industries.Valid && industries.String != "" {
		if err := json.Unmarshal([]byte(industries.String), &l.Industries); err != nil {
			return l, err
		}
	}
	l.PaperGrade = grade.String
	l.ContactName = cname.String
	l.ContactEmail = cemail.String
	l.Phone = phone.String
	l.Notes = notes.String
	l.Active = active != 0
	return l, nil
}

func marshalIndustries(industries []string) (any, error) {
	if len(industries) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(industries)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r Repo) InsertLender(ctx context.Context, l domain.Lender) error {
	industries, err := marshalIndustries(l.Industries)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO lenders(`+lenderColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.ID, l.Name, l.MinAmount, l.MaxAmount, nullableInt(l.MinCreditScore), industries, nullable(l.PaperGrade),
		nullable(l.ContactName), nullable(l.ContactEmail), nullable(l.Phone), nullable(l.Notes),
		boolInt(l.Active), l.CreatedAt, l.UpdatedAt)
	return err
}

func (r Repo) UpdateLender(ctx context.Context, l domain.Lender) error {
	industries, err := marshalIndustries(l.Industries)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE lenders SET name=?, min_amount=?, max_amount=?, min_credit_score=?, industries_json=?, paper_grade=?, contact_name=?, contact_email=?, phone=?, notes=?, active=?, updated_at=? WHERE id=?`,
		l.Name, l.MinAmount, l.MaxAmount, nullableInt(l.MinCreditScore), industries, nullable(l.PaperGrade),
		nullable(l.ContactName), nullable(l.ContactEmail), nullable(l.Phone), nullable(l.Notes),
		boolInt(l.Active), l.UpdatedAt, l.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetLender(ctx context.Context, id string) (domain.Lender, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+lenderColumns+` FROM lenders WHERE id=?`, id)
	l, err := scanLender(row.Scan)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	return l, err
}

type LenderFilters struct {
	ActiveOnly bool
	PaperGrade string
	// Amount filters to lenders whose min/max range covers it. Zero means no
	// amount filter. A lender with max_amount 0 has no cap and matches any
	// amount above its minimum.
	Amount float64
}

func (r Repo) ListLenders(ctx context.Context, f LenderFilters) ([]domain.Lender, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.ActiveOnly {
		clauses = append(clauses, "active=1")
	}
	if f.PaperGrade != "" {
		clauses = append(clauses, "paper_grade=?")
		args = append(args, f.PaperGrade)
	}
	if f.Amount > 0 {
		clauses = append(clauses, "min_amount <= ? AND (max_amount = 0 OR max_amount >= ?)")
		args = append(args, f.Amount, f.Amount)
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+lenderColumns+` FROM lenders WHERE `+strings.Join(clauses, " AND ")+` ORDER BY name, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Lender
	for rows.Next() {
		l, err := scanLender(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r Repo) DeleteLender(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM lenders WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- customers ---

const customerColumns = `id,business_name,owner_name,email,phone,stage,requested_amount,funded_amount,lender_id,vendor_id,notes,created_at,updated_at`

func scanCustomer(scan func(dest ...any) error) (domain.Customer, error) {
	var c domain.Customer
	var owner, email, phone, lenderID, vendorID, notes sql.NullString
	var stage string
	var funded sql.NullFloat64
	err := scan(&c.ID, &c.BusinessName, &owner, &email, &phone, &stage, &c.RequestedAmount,
		&funded, &lenderID, &vendorID, &notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	st, err := domain.ParseStage(stage)
	if err != nil {
		return c, err
	}
	c.Stage = st
	c.OwnerName = owner.String
	c.Email = email.String
	c.Phone = phone.String
	c.Notes = notes.String
	if funded.Valid {
		c.FundedAmount = &funded.Float64
	}
	if lenderID.Valid {
		c.LenderID = &lenderID.String
	}
	if vendorID.Valid {
		c.VendorID = &vendorID.String
	}
	return c, nil
}

func (r Repo) InsertCustomer(ctx context.Context, c domain.Customer) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO customers(`+customerColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.BusinessName, nullable(c.OwnerName), nullable(c.Email), nullable(c.Phone), string(c.Stage),
		c.RequestedAmount, nullableFloatPtr(c.FundedAmount), nullableStringPtr(c.LenderID), nullableStringPtr(c.VendorID),
		nullable(c.Notes), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE customers SET business_name=?, owner_name=?, email=?, phone=?, stage=?, requested_amount=?, funded_amount=?, lender_id=?, vendor_id=?, notes=?, updated_at=? WHERE id=?`,
		c.BusinessName, nullable(c.OwnerName), nullable(c.Email), nullable(c.Phone), string(c.Stage),
		c.RequestedAmount, nullableFloatPtr(c.FundedAmount), nullableStringPtr(c.LenderID), nullableStringPtr(c.VendorID),
		nullable(c.Notes), c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=?`, id)
	c, err := scanCustomer(row.Scan)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

type CustomerFilters struct {
	Stage    string
	VendorID string
	LenderID string
	Search   string
	Limit    int
	// Cursor pages by (created_at, id) descending; pass the values of the
	// last row of the previous page.
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListCustomers(ctx context.Context, f CustomerFilters) ([]domain.Customer, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Stage != "" {
		clauses = append(clauses, "stage=?")
		args = append(args, f.Stage)
	}
	if f.VendorID != "" {
		clauses = append(clauses, "vendor_id=?")
		args = append(args, f.VendorID)
	}
	if f.LenderID != "" {
		clauses = append(clauses, "lender_id=?")
		args = append(args, f.LenderID)
	}
	if f.Search != "" {
		clauses = append(clauses, "(business_name LIKE ? COLLATE NOCASE OR owner_name LIKE ? COLLATE NOCASE)")
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	query := `SELECT ` + customerColumns + ` FROM customers WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) DeleteCustomer(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM customers WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountCustomersByStage(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT stage, count(*) FROM customers GROUP BY stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, err
		}
		res[stage] = count
	}
	return res, rows.Err()
}

// --- vendors ---

const vendorColumns = `id,name,channel,monthly_spend,leads_delivered,active,notes,created_at,updated_at`

func scanVendor(scan func(dest ...any) error) (domain.Vendor, error) {
	var v domain.Vendor
	var channel, notes sql.NullString
	var active int
	err := scan(&v.ID, &v.Name, &channel, &v.MonthlySpend, &v.LeadsDelivered, &active, &notes, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return v, err
	}
	v.Channel = channel.String
	v.Notes = notes.String
	v.Active = active != 0
	return v, nil
}

func (r Repo) InsertVendor(ctx context.Context, v domain.Vendor) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO vendors(`+vendorColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		v.ID, v.Name, nullable(v.Channel), v.MonthlySpend, v.LeadsDelivered, boolInt(v.Active),
		nullable(v.Notes), v.CreatedAt, v.UpdatedAt)
	return err
}

func (r Repo) UpdateVendor(ctx context.Context, v domain.Vendor) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE vendors SET name=?, channel=?, monthly_spend=?, leads_delivered=?, active=?, notes=?, updated_at=? WHERE id=?`,
		v.Name, nullable(v.Channel), v.MonthlySpend, v.LeadsDelivered, boolInt(v.Active),
		nullable(v.Notes), v.UpdatedAt, v.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetVendor(ctx context.Context, id string) (domain.Vendor, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id=?`, id)
	v, err := scanVendor(row.Scan)
	if err == sql.ErrNoRows {
		return v, ErrNotFound
	}
	return v, err
}

func (r Repo) ListVendors(ctx context.Context, activeOnly bool) ([]domain.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors`
	if activeOnly {
		query += ` WHERE active=1`
	}
	query += ` ORDER BY name, id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Vendor
	for rows.Next() {
		v, err := scanVendor(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

func (r Repo) DeleteVendor(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM vendors WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
