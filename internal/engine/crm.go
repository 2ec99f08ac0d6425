package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"fundline/internal/domain"
	"fundline/internal/repo"
	"fundline/internal/unitecon"
)

// --- lenders ---

type LenderInput struct {
	Name           string
	MinAmount      float64
	MaxAmount      float64
	MinCreditScore int
	Industries     []string
	PaperGrade     string
	ContactName    string
	ContactEmail   string
	Phone          string
	Notes          string
	Active         *bool
}

func (in LenderInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.MinAmount < 0 || in.MaxAmount < 0 {
		return fmt.Errorf("%w: amounts must be non-negative", ErrValidation)
	}
	if in.MaxAmount > 0 && in.MinAmount > in.MaxAmount {
		return fmt.Errorf("%w: min_amount exceeds max_amount", ErrValidation)
	}
	switch in.PaperGrade {
	case "", "A", "B", "C", "D":
	default:
		return fmt.Errorf("%w: unknown paper grade %q", ErrValidation, in.PaperGrade)
	}
	return nil
}

func (e *Engine) CreateLender(ctx context.Context, in LenderInput) (domain.Lender, error) {
	var l domain.Lender
	if err := in.validate(); err != nil {
		return l, err
	}
	ts := e.now()
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	l = domain.Lender{
		ID:             e.NewID(),
		Name:           in.Name,
		MinAmount:      in.MinAmount,
		MaxAmount:      in.MaxAmount,
		MinCreditScore: in.MinCreditScore,
		Industries:     in.Industries,
		PaperGrade:     in.PaperGrade,
		ContactName:    in.ContactName,
		ContactEmail:   in.ContactEmail,
		Phone:          in.Phone,
		Notes:          in.Notes,
		Active:         active,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	return l, e.Repo.InsertLender(ctx, l)
}

func (e *Engine) UpdateLender(ctx context.Context, id string, in LenderInput) (domain.Lender, error) {
	l, err := e.Repo.GetLender(ctx, id)
	if err != nil {
		return l, err
	}
	if err := in.validate(); err != nil {
		return l, err
	}
	l.Name = in.Name
	l.MinAmount = in.MinAmount
	l.MaxAmount = in.MaxAmount
	l.MinCreditScore = in.MinCreditScore
	l.Industries = in.Industries
	l.PaperGrade = in.PaperGrade
	l.ContactName = in.ContactName
	l.ContactEmail = in.ContactEmail
	l.Phone = in.Phone
	l.Notes = in.Notes
	if in.Active != nil {
		l.Active = *in.Active
	}
	l.UpdatedAt = e.now()
	return l, e.Repo.UpdateLender(ctx, l)
}

// MatchLenders returns active lenders whose amount range covers the requested
// amount, optionally narrowed by paper grade.
func (e *Engine) MatchLenders(ctx context.Context, amount float64, paperGrade string) ([]domain.Lender, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return e.Repo.ListLenders(ctx, repo.LenderFilters{ActiveOnly: true, Amount: amount, PaperGrade: paperGrade})
}

// --- customers ---

type CustomerInput struct {
	BusinessName    string
	OwnerName       string
	Email           string
	Phone           string
	RequestedAmount float64
	VendorID        *string
	Notes           string
}

func (e *Engine) CreateCustomer(ctx context.Context, in CustomerInput) (domain.Customer, error) {
	var c domain.Customer
	if in.BusinessName == "" {
		return c, fmt.Errorf("%w: business_name is required", ErrValidation)
	}
	if in.RequestedAmount < 0 {
		return c, fmt.Errorf("%w: requested_amount must be non-negative", ErrValidation)
	}
	if in.VendorID != nil {
		if _, err := e.Repo.GetVendor(ctx, *in.VendorID); err != nil {
			return c, fmt.Errorf("vendor: %w", err)
		}
	}
	ts := e.now()
	c = domain.Customer{
		ID:              e.NewID(),
		BusinessName:    in.BusinessName,
		OwnerName:       in.OwnerName,
		Email:           in.Email,
		Phone:           in.Phone,
		Stage:           domain.StageLead,
		RequestedAmount: in.RequestedAmount,
		VendorID:        in.VendorID,
		Notes:           in.Notes,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	return c, e.Repo.InsertCustomer(ctx, c)
}

type CustomerUpdate struct {
	BusinessName    *string
	OwnerName       *string
	Email           *string
	Phone           *string
	RequestedAmount *float64
	Notes           *string
}

func (e *Engine) UpdateCustomer(ctx context.Context, id string, in CustomerUpdate) (domain.Customer, error) {
	c, err := e.Repo.GetCustomer(ctx, id)
	if err != nil {
		return c, err
	}
	if in.BusinessName != nil {
		if *in.BusinessName == "" {
			return c, fmt.Errorf("%w: business_name is required", ErrValidation)
		}
		c.BusinessName = *in.BusinessName
	}
	if in.OwnerName != nil {
		c.OwnerName = *in.OwnerName
	}
	if in.Email != nil {
		c.Email = *in.Email
	}
	if in.Phone != nil {
		c.Phone = *in.Phone
	}
	if in.RequestedAmount != nil {
		if *in.RequestedAmount < 0 {
			return c, fmt.Errorf("%w: requested_amount must be non-negative", ErrValidation)
		}
		c.RequestedAmount = *in.RequestedAmount
	}
	if in.Notes != nil {
		c.Notes = *in.Notes
	}
	c.UpdatedAt = e.now()
	return c, e.Repo.UpdateCustomer(ctx, c)
}

type StageChange struct {
	To           string
	Force        bool
	FundedAmount *float64
	LenderID     *string
}

// ChangeCustomerStage validates a pipeline transition: forward through the
// funnel or any stage to lost; force skips the check. Moving to funded records
// the funded amount and the lender that funded the deal.
func (e *Engine) ChangeCustomerStage(ctx context.Context, id string, ch StageChange) (domain.Customer, error) {
	c, err := e.Repo.GetCustomer(ctx, id)
	if err != nil {
		return c, err
	}
	to, err := domain.ParseStage(ch.To)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if to == c.Stage {
		return c, nil
	}
	if !ch.Force && !c.Stage.CanTransition(to) {
		return c, fmt.Errorf("%w: %s to %s", ErrTransition, c.Stage, to)
	}
	if to == domain.StageFunded {
		if ch.FundedAmount == nil || *ch.FundedAmount <= 0 {
			return c, fmt.Errorf("%w: funded_amount is required to mark funded", ErrValidation)
		}
		if ch.LenderID == nil {
			return c, fmt.Errorf("%w: lender_id is required to mark funded", ErrValidation)
		}
		if _, err := e.Repo.GetLender(ctx, *ch.LenderID); err != nil {
			return c, fmt.Errorf("lender: %w", err)
		}
		c.FundedAmount = ch.FundedAmount
		c.LenderID = ch.LenderID
	}
	c.Stage = to
	c.UpdatedAt = e.now()
	if err := e.Repo.UpdateCustomer(ctx, c); err != nil {
		return c, err
	}
	return c, nil
}

// --- vendors ---

type VendorInput struct {
	Name           string
	Channel        string
	MonthlySpend   float64
	LeadsDelivered int
	Active         *bool
	Notes          string
}

func (in VendorInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.MonthlySpend < 0 || in.LeadsDelivered < 0 {
		return fmt.Errorf("%w: spend and leads must be non-negative", ErrValidation)
	}
	return nil
}

func (e *Engine) CreateVendor(ctx context.Context, in VendorInput) (domain.Vendor, error) {
	var v domain.Vendor
	if err := in.validate(); err != nil {
		return v, err
	}
	ts := e.now()
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	v = domain.Vendor{
		ID:             e.NewID(),
		Name:           in.Name,
		Channel:        in.Channel,
		MonthlySpend:   in.MonthlySpend,
		LeadsDelivered: in.LeadsDelivered,
		Active:         active,
		Notes:          in.Notes,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	return v, e.Repo.InsertVendor(ctx, v)
}

func (e *Engine) UpdateVendor(ctx context.Context, id string, in VendorInput) (domain.Vendor, error) {
	v, err := e.Repo.GetVendor(ctx, id)
	if err != nil {
		return v, err
	}
	if err := in.validate(); err != nil {
		return v, err
	}
	v.Name = in.Name
	v.Channel = in.Channel
	v.MonthlySpend = in.MonthlySpend
	v.LeadsDelivered = in.LeadsDelivered
	if in.Active != nil {
		v.Active = *in.Active
	}
	v.Notes = in.Notes
	v.UpdatedAt = e.now()
	return v, e.Repo.UpdateVendor(ctx, v)
}

// --- documents and inbox ---

type DocumentInput struct {
	CustomerID string
	Name       string
	Kind       string
	StorageKey string
}

// RegisterDocument records upload metadata; the blob itself is stored out of
// band under StorageKey.
func (e *Engine) RegisterDocument(ctx context.Context, actorID string, in DocumentInput) (domain.Document, error) {
	var d domain.Document
	if in.Name == "" || in.StorageKey == "" {
		return d, fmt.Errorf("%w: name and storage_key are required", ErrValidation)
	}
	if _, err := e.Repo.GetCustomer(ctx, in.CustomerID); err != nil {
		return d, fmt.Errorf("customer: %w", err)
	}
	d = domain.Document{
		ID:         e.NewID(),
		CustomerID: in.CustomerID,
		Name:       in.Name,
		Kind:       in.Kind,
		StorageKey: in.StorageKey,
		UploadedBy: actorID,
		CreatedAt:  e.now(),
	}
	return d, e.Repo.InsertDocument(ctx, d)
}

func (e *Engine) SendMessage(ctx context.Context, senderID, customerID, subject, body string) (domain.Message, error) {
	var m domain.Message
	if subject == "" {
		return m, fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if _, err := e.Repo.GetCustomer(ctx, customerID); err != nil {
		return m, fmt.Errorf("customer: %w", err)
	}
	m = domain.Message{
		ID:         e.NewID(),
		CustomerID: customerID,
		SenderID:   senderID,
		Subject:    subject,
		Body:       body,
		CreatedAt:  e.now(),
	}
	return m, e.Repo.InsertMessage(ctx, m)
}

// --- calculator scenarios ---

// SaveScenario validates and persists a calculator run. Inputs are stored as
// JSON; the derived metrics are recomputed on read.
func (e *Engine) SaveScenario(ctx context.Context, actorID, name string, in unitecon.Inputs) (domain.CalcScenario, error) {
	var s domain.CalcScenario
	if name == "" {
		return s, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := in.Validate(); err != nil {
		return s, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return s, err
	}
	s = domain.CalcScenario{
		ID:         e.NewID(),
		Name:       name,
		InputsJSON: string(raw),
		CreatedBy:  actorID,
		CreatedAt:  e.now(),
	}
	return s, e.Repo.InsertScenario(ctx, s)
}

// LoadScenario returns a saved scenario with its inputs decoded and metrics
// recomputed.
func (e *Engine) LoadScenario(ctx context.Context, id string) (domain.CalcScenario, unitecon.Inputs, unitecon.Metrics, error) {
	var in unitecon.Inputs
	s, err := e.Repo.GetScenario(ctx, id)
	if err != nil {
		return s, in, unitecon.Metrics{}, err
	}
	if err := json.Unmarshal([]byte(s.InputsJSON), &in); err != nil {
		return s, in, unitecon.Metrics{}, fmt.Errorf("decode scenario inputs: %w", err)
	}
	return s, in, unitecon.Compute(in), nil
}
