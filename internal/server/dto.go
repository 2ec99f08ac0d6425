package server

import (
	"fundline/internal/domain"
	"fundline/internal/repo"
	"fundline/internal/unitecon"
)

// Request payloads

type CreateTaskRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Status         string   `json:"status,omitempty" enum:"backlog,todo,in_progress,review,done"`
	Priority       string   `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	Category       string   `json:"category,omitempty"`
	Phase          string   `json:"phase,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	DueDate        *string  `json:"due_date,omitempty" format:"date"`
	AssignedTo     *string  `json:"assigned_to,omitempty"`
}

type UpdateTaskRequest struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Status         *string  `json:"status,omitempty" enum:"backlog,todo,in_progress,review,done"`
	Priority       *string  `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	Category       *string  `json:"category,omitempty"`
	Phase          *string  `json:"phase,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	ActualHours    *float64 `json:"actual_hours,omitempty"`
	DueDate        *string  `json:"due_date,omitempty" format:"date"`
	AssignedTo     *string  `json:"assigned_to,omitempty"`
}

// MoveTaskRequest carries the drop target: either a column id or another
// task's id.
type MoveTaskRequest struct {
	OverID string `json:"over_id"`
}

type PlaceTaskRequest struct {
	Status   string `json:"status" enum:"backlog,todo,in_progress,review,done"`
	Position int    `json:"position" minimum:"0"`
}

type AppendActivityRequest struct {
	Action    string `json:"action"`
	FieldName string `json:"field_name,omitempty"`
	OldValue  string `json:"old_value,omitempty"`
	NewValue  string `json:"new_value,omitempty"`
}

type AddCommentRequest struct {
	Content string `json:"content"`
}

type CreateDictEntryRequest struct {
	Name string `json:"name"`
}

type LenderRequest struct {
	Name           string   `json:"name"`
	MinAmount      float64  `json:"min_amount,omitempty"`
	MaxAmount      float64  `json:"max_amount,omitempty"`
	MinCreditScore int      `json:"min_credit_score,omitempty"`
	Industries     []string `json:"industries,omitempty"`
	PaperGrade     string   `json:"paper_grade,omitempty" enum:"A,B,C,D"`
	ContactName    string   `json:"contact_name,omitempty"`
	ContactEmail   string   `json:"contact_email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	Active         *bool    `json:"active,omitempty"`
}

type CreateCustomerRequest struct {
	BusinessName    string  `json:"business_name"`
	OwnerName       string  `json:"owner_name,omitempty"`
	Email           string  `json:"email,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	RequestedAmount float64 `json:"requested_amount,omitempty"`
	VendorID        *string `json:"vendor_id,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

type UpdateCustomerRequest struct {
	BusinessName    *string  `json:"business_name,omitempty"`
	OwnerName       *string  `json:"owner_name,omitempty"`
	Email           *string  `json:"email,omitempty"`
	Phone           *string  `json:"phone,omitempty"`
	RequestedAmount *float64 `json:"requested_amount,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

type ChangeStageRequest struct {
	Stage        string   `json:"stage" enum:"lead,contacted,application,underwriting,offer,funded,lost"`
	Force        bool     `json:"force,omitempty"`
	FundedAmount *float64 `json:"funded_amount,omitempty"`
	LenderID     *string  `json:"lender_id,omitempty"`
}

type VendorRequest struct {
	Name           string `json:"name"`
	Channel        string `json:"channel,omitempty"`
	MonthlySpend   float64 `json:"monthly_spend,omitempty"`
	LeadsDelivered int    `json:"leads_delivered,omitempty"`
	Active         *bool  `json:"active,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type RegisterDocumentRequest struct {
	Name       string `json:"name"`
	Kind       string `json:"kind,omitempty"`
	StorageKey string `json:"storage_key"`
}

type SendMessageRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body,omitempty"`
}

type CalcRequest struct {
	Inputs unitecon.Inputs `json:"inputs"`
	// Save persists the run as a named scenario when non-empty.
	Save string `json:"save,omitempty"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role,omitempty" enum:"user,admin,super_admin"`
}

type CreateAPIKeyRequest struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty" enum:"user,admin,super_admin"`
}

// Response payloads

type BoardResponse struct {
	Columns     map[string][]domain.Task `json:"columns"`
	Quarantined []repo.QuarantinedTask   `json:"quarantined,omitempty"`
}

type MoveTaskResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type VendorResponse struct {
	domain.Vendor
	CostPerLead float64 `json:"cost_per_lead"`
}

type CalcResponse struct {
	Metrics    unitecon.Metrics `json:"metrics"`
	ScenarioID string           `json:"scenario_id,omitempty"`
}

type ScenarioResponse struct {
	Scenario domain.CalcScenario `json:"scenario"`
	Inputs   unitecon.Inputs     `json:"inputs"`
	Metrics  unitecon.Metrics    `json:"metrics"`
}

type WhoAmIResponse struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
	Source  string `json:"source"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type CreateAPIKeyResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

func vendorResponse(v domain.Vendor) VendorResponse {
	return VendorResponse{Vendor: v, CostPerLead: v.CostPerLead()}
}
