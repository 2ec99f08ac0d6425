package domain

// Task is a board card. Position is the dense per-column ordering key: within
// one status the positions of all tasks are exactly 0..n-1.
type Task struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Status         Status   `json:"status" enum:"backlog,todo,in_progress,review,done"`
	Priority       Priority `json:"priority" enum:"low,medium,high,urgent"`
	Category       string   `json:"category,omitempty"`
	Phase          string   `json:"phase,omitempty"`
	Position       int      `json:"position"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	ActualHours    *float64 `json:"actual_hours,omitempty"`
	DueDate        *string  `json:"due_date,omitempty" format:"date"`
	CreatedBy      string   `json:"created_by"`
	AssignedTo     *string  `json:"assigned_to,omitempty"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
	UpdatedAt      string   `json:"updated_at" format:"date-time"`
}

// Phase and Category are ordered tag dictionaries used for filtering and
// labeling only.
type Phase struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Comment belongs to exactly one task and is immutable once created.
type Comment struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	AuthorID  string `json:"author_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// ActivityEntry is an append-only audit record for one task.
type ActivityEntry struct {
	ID        int64  `json:"id"`
	TaskID    string `json:"task_id"`
	ActorID   string `json:"actor_id"`
	Action    string `json:"action"`
	FieldName string `json:"field_name,omitempty"`
	OldValue  string `json:"old_value,omitempty"`
	NewValue  string `json:"new_value,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Lender is a funding partner in the directory.
type Lender struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	MinAmount      float64  `json:"min_amount"`
	MaxAmount      float64  `json:"max_amount"`
	MinCreditScore int      `json:"min_credit_score,omitempty"`
	Industries     []string `json:"industries,omitempty"`
	PaperGrade     string   `json:"paper_grade,omitempty" enum:"A,B,C,D"`
	ContactName    string   `json:"contact_name,omitempty"`
	ContactEmail   string   `json:"contact_email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	Active         bool     `json:"active"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
	UpdatedAt      string   `json:"updated_at" format:"date-time"`
}

// Customer is a funding prospect moving through the pipeline.
type Customer struct {
	ID              string   `json:"id"`
	BusinessName    string   `json:"business_name"`
	OwnerName       string   `json:"owner_name,omitempty"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Stage           Stage    `json:"stage" enum:"lead,contacted,application,underwriting,offer,funded,lost"`
	RequestedAmount float64  `json:"requested_amount,omitempty"`
	FundedAmount    *float64 `json:"funded_amount,omitempty"`
	LenderID        *string  `json:"lender_id,omitempty"`
	VendorID        *string  `json:"vendor_id,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	CreatedAt       string   `json:"created_at" format:"date-time"`
	UpdatedAt       string   `json:"updated_at" format:"date-time"`
}

// Vendor is a marketing lead source tracked for spend and delivery.
type Vendor struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Channel        string  `json:"channel,omitempty"`
	MonthlySpend   float64 `json:"monthly_spend"`
	LeadsDelivered int     `json:"leads_delivered"`
	Active         bool    `json:"active"`
	Notes          string  `json:"notes,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
}

// CostPerLead returns monthly spend divided by leads, or 0 with no leads.
func (v Vendor) CostPerLead() float64 {
	if v.LeadsDelivered <= 0 {
		return 0
	}
	return v.MonthlySpend / float64(v.LeadsDelivered)
}

// Document is upload metadata only; the blob lives in external storage under
// StorageKey.
type Document struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Kind       string `json:"kind,omitempty"`
	StorageKey string `json:"storage_key"`
	UploadedBy string `json:"uploaded_by"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

// Message is an inbox item attached to a customer.
type Message struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	SenderID   string `json:"sender_id"`
	Subject    string `json:"subject"`
	Body       string `json:"body,omitempty"`
	Read       bool   `json:"read"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

// CalcScenario is a saved unit-economics calculator run; inputs are stored as
// JSON so the calculator model can evolve without migrations.
type CalcScenario struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	InputsJSON string `json:"inputs_json"`
	CreatedBy  string `json:"created_by"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

// Profile is an operator account used for role gating.
type Profile struct {
	ActorID   string `json:"actor_id"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role" enum:"user,admin,super_admin"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
