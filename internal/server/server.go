// Package server exposes the workspace over HTTP. Handlers stay thin: role
// gating and error mapping here, all semantics in the engine.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"fundline/internal/board"
	"fundline/internal/domain"
	"fundline/internal/engine"
	"fundline/internal/repo"
	"fundline/internal/unitecon"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"task not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError is the error envelope every endpoint returns.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Fundline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Fundline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerBoard(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerDictionaries(group, cfg.Engine)
	registerLenders(group, cfg.Engine)
	registerCustomers(group, cfg.Engine)
	registerVendors(group, cfg.Engine)
	registerDocuments(group, cfg.Engine)
	registerInbox(group, cfg.Engine)
	registerCalc(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerMe(group)
	registerDevAuth(group, cfg.Auth)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, engine.ErrTransition) {
		return newAPIError(http.StatusConflict, "stage_conflict", err.Error(), nil)
	}
	if errors.Is(err, engine.ErrValidation) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerBoard(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Board grouped by column",
	}, func(ctx context.Context, input *struct {
		Search   string `query:"search"`
		Phase    string `query:"phase"`
		Category string `query:"category"`
		Priority string `query:"priority" enum:",low,medium,high,urgent"`
	}) (*struct {
		Body BoardResponse `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{})
		if err != nil {
			return nil, handleError(err)
		}
		filter := board.Filter{
			Search:   input.Search,
			Phase:    input.Phase,
			Category: input.Category,
			Priority: input.Priority,
		}
		grouped := board.GroupByStatus(filter.Apply(tasks))
		columns := make(map[string][]domain.Task, len(grouped))
		for status, col := range grouped {
			columns[string(status)] = col
		}
		quarantined, err := e.Repo.ListQuarantined(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BoardResponse `json:"body"`
		}{Body: BoardResponse{Columns: columns, Quarantined: quarantined}}, nil
	})
}

func registerTasks(api huma.API, e *engine.Engine) {
	type TaskPath struct {
		TaskID string `path:"task_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		principal, authErr := requireRole(ctx, domain.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, principal.ActorID, engine.CreateTaskInput{
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			Status:         input.Body.Status,
			Priority:       input.Body.Priority,
			Category:       input.Body.Category,
			Phase:          input.Body.Phase,
			EstimatedHours: input.Body.EstimatedHours,
			DueDate:        input.Body.DueDate,
			AssignedTo:     input.Body.AssignedTo,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		Status     string `query:"status" enum:",backlog,todo,in_progress,review,done"`
		Priority   string `query:"priority" enum:",low,medium,high,urgent"`
		Phase      string `query:"phase"`
		Category   string `query:"category"`
		AssignedTo string `query:"assigned_to"`
		Limit      int    `query:"limit" minimum:"0"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{
			Status:     input.Status,
			Priority:   input.Priority,
			Phase:      input.Phase,
			Category:   input.Category,
			AssignedTo: input.AssignedTo,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
	}, func(ctx context.Context, input *TaskPath) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task",
	}, func(ctx context.Context, input *struct {
		TaskPath
		Body UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		principal, authErr := requireRole(ctx, domain.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTask(ctx, principal.ActorID, input.TaskID, engine.UpdateTaskInput{
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			Status:         input.Body.Status,
			Priority:       input.Body.Priority,
			Category:       input.Body.Category,
			Phase:          input.Body.Phase,
			EstimatedHours: input.Body.EstimatedHours,
			ActualHours:    input.Body.ActualHours,
			DueDate:        input.Body.DueDate,
			AssignedTo:     input.Body.AssignedTo,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{task_id}",
		Summary:     "Delete task",
	}, func(ctx context.Context, input *TaskPath) (*struct{}, error) {
		if _, authErr := requireRole(ctx, domain.RoleSuperAdmin); authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/move",
		Summary:     "Move task on the board",
	}, func(ctx context.Context, input *struct {
		TaskPath
		Body MoveTaskRequest `json:"body"`
	}) (*struct {
		Body MoveTaskResponse `json:"body"`
	}, error) {
		principal, authErr := requireRole(ctx, domain.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.OverID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "over_id is required", nil)
		}
		tasks, err := e.MoveTask(ctx, principal.ActorID, input.TaskID, input.Body.OverID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MoveTaskResponse `json:"body"`
		}{Body: MoveTaskResponse{Tasks: tasks}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "place-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}/placement",
		Summary:     "Set task column and position",
		Description: "Low level placement write used by drag clients committing a precomputed board state.",
	}, func(ctx context.Context, input *struct {
		TaskPath
		Body PlaceTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		principal, authErr := requireRole(ctx, domain.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		status, err := domain.ParseStatus(input.Body.Status)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		if input.Body.Position < 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "position must be non-negative", nil)
		}
		gw := e.Gateway(principal.ActorID)
		if err := gw.UpdateTaskPlacement(ctx, input.TaskID, status, input.Body.Position); err != nil {
			return nil, handleError(err)
		}
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "append-activity",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/activity",
		Summary:       "Append activity entry",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		TaskPath
		Body AppendActivityRequest `json:"body"`
	}) (*struct{}, error) {
		principal, authErr := requireRole(ctx, domain.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Action == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "action is required", nil)
		}
		if _, err := e.Repo.GetTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		gw := e.Gateway(principal.ActorID)
		if err := gw.AppendActivity(ctx, input.TaskID, input.Body.Action,
			input.Body.FieldName, input.Body.OldValue, input.Body.NewValue); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-comment",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/comments",
		Summary:       "Add comment",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		TaskPath
		Body AddCommentRequest `json:"body"`
	}) (*struct {
		Body domain.Comment `json:"body"`
	}, error) {
		principal, authErr := requireRole(ctx, domain.RoleUser)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.AddComment(ctx, principal.ActorID, input.TaskID, input.Body.Content)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Comment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-comments",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}/comments",
		Summary:     "List comments",
	}, func(ctx context.Context, input *TaskPath) (*struct {
		Body []domain.Comment `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		if _, err := e.Repo.GetTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		comments, err := e.Repo.ListComments(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Comment `json:"body"`
		}{Body: comments}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "task-activity",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}/activity",
		Summary:     "Task activity log",
	}, func(ctx context.Context, input *struct {
		TaskPath
		Limit int `query:"limit" minimum:"0"`
	}) (*struct {
		Body []domain.ActivityEntry `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		if _, err := e.Repo.GetTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		entries, err := e.Repo.ListActivity(ctx, input.TaskID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ActivityEntry `json:"body"`
		}{Body: entries}, nil
	})
}

func registerDictionaries(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-phase",
		Method:        http.MethodPost,
		Path:          "/phases",
		Summary:       "Create phase",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateDictEntryRequest `json:"body"`
	}) (*struct {
		Body domain.Phase `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleAdmin); authErr != nil {
			return nil, authErr
		}
		p, err := e.CreatePhase(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Phase `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-phases",
		Method:      http.MethodGet,
		Path:        "/phases",
		Summary:     "List phases",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Phase `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		phases, err := e.Repo.ListPhases(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Phase `json:"body"`
		}{Body: phases}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-phase",
		Method:      http.MethodDelete,
		Path:        "/phases/{phase_id}",
		Summary:     "Delete phase",
	}, func(ctx context.Context, input *struct {
		PhaseID string `path:"phase_id"`
	}) (*struct{}, error) {
		if _, authErr := requireRole(ctx, domain.RoleSuperAdmin); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeletePhase(ctx, input.PhaseID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-category",
		Method:        http.MethodPost,
		Path:          "/categories",
		Summary:       "Create category",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateDictEntryRequest `json:"body"`
	}) (*struct {
		Body domain.Category `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleAdmin); authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateCategory(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Category `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/categories",
		Summary:     "List categories",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Category `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		cats, err := e.Repo.ListCategories(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Category `json:"body"`
		}{Body: cats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-category",
		Method:      http.MethodDelete,
		Path:        "/categories/{category_id}",
		Summary:     "Delete category",
	}, func(ctx context.Context, input *struct {
		CategoryID string `path:"category_id"`
	}) (*struct{}, error) {
		if _, authErr := requireRole(ctx, domain.RoleSuperAdmin); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteCategory(ctx, input.CategoryID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerLenders(api huma.API, e *engine.Engine) {
	type LenderPath struct {
		LenderID string `path:"lender_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-lender",
		Method:        http.MethodPost,
		Path:          "/lenders",
		Summary:       "Create lender",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body LenderRequest `json:"body"`
	}) (*struct {
		Body domain.Lender `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleAdmin); authErr != nil {
			return nil, authErr
		}
		l, err := e.CreateLender(ctx, lenderInput(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Lender `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-lenders",
		Method:      http.MethodGet,
		Path:        "/lenders",
		Summary:     "List lenders, optionally matched to an amount",
	}, func(ctx context.Context, input *struct {
		Amount     float64 `query:"amount" minimum:"0"`
		PaperGrade string  `query:"paper_grade" enum:",A,B,C,D"`
		ActiveOnly bool    `query:"active_only"`
	}) (*struct {
		Body []domain.Lender `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		var lenders []domain.Lender
		var err error
		if input.Amount > 0 {
			lenders, err = e.MatchLenders(ctx, input.Amount, input.PaperGrade)
		} else {
			lenders, err = e.Repo.ListLenders(ctx, repo.LenderFilters{
				ActiveOnly: input.ActiveOnly,
				PaperGrade: input.PaperGrade,
			})
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Lender `json:"body"`
		}{Body: lenders}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-lender",
		Method:      http.MethodGet,
		Path:        "/lenders/{lender_id}",
		Summary:     "Get lender",
	}, func(ctx context.Context, input *LenderPath) (*struct {
		Body domain.Lender `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		l, err := e.Repo.GetLender(ctx, input.LenderID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Lender `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-lender",
		Method:      http.MethodPut,
		Path:        "/lenders/{lender_id}",
		Summary:     "Update lender",
	}, func(ctx context.Context, input *struct {
		LenderPath
		Body LenderRequest `json:"body"`
	}) (*struct {
		Body domain.Lender `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleAdmin); authErr != nil {
			return nil, authErr
		}
		l, err := e.UpdateLender(ctx, input.LenderID, lenderInput(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Lender `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-lender",
		Method:      http.MethodDelete,
		Path:        "/lenders/{lender_id}",
		Summary:     "Delete lender",
	}, func(ctx context.Context, input *LenderPath) (*struct{}, error) {
		if _, authErr := requireRole(ctx, domain.RoleSuperAdmin); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteLender(ctx, input.LenderID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func lenderInput(b LenderRequest) engine.LenderInput {
	return engine.LenderInput{
		Name:           b.Name,
		MinAmount:      b.MinAmount,
		MaxAmount:      b.MaxAmount,
		MinCreditScore: b.MinCreditScore,
		Industries:     b.Industries,
		PaperGrade:     b.PaperGrade,
		ContactName:    b.ContactName,
		ContactEmail:   b.ContactEmail,
		Phone:          b.Phone,
		Notes:          b.Notes,
		Active:         b.Active,
	}
}

func registerCustomers(api huma.API, e *engine.Engine) {
	type CustomerPath struct {
		CustomerID string `path:"customer_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-customer",
		Method:        http.MethodPost,
		Path:          "/customers",
		Summary:       "Create customer",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateCustomerRequest `json:"body"`
	}) (*struct {
		Body domain.Customer `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleAdmin); authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateCustomer(ctx, engine.CustomerInput{
			BusinessName:    input.Body.BusinessName,
			OwnerName:       input.Body.OwnerName,
			Email:           input.Body.Email,
			Phone:           input.Body.Phone,
			RequestedAmount: input.Body.RequestedAmount,
			VendorID:        input.Body.VendorID,
			Notes:           input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Customer `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-customers",
		Method:      http.MethodGet,
		Path:        "/customers",
		Summary:     "List customers",
	}, func(ctx context.Context, input *struct {
		Stage           string `query:"stage" enum:",lead,contacted,application,underwriting,offer,funded,lost"`
		VendorID        string `query:"vendor_id"`
		LenderID        string `query:"lender_id"`
		Search          string `query:"search"`
		Limit           int    `query:"limit" minimum:"0"`
		CursorCreatedAt string `query:"cursor_created_at"`
		CursorID        string `query:"cursor_id"`
	}) (*struct {
		Body []domain.Customer `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		customers, err := e.Repo.ListCustomers(ctx, repo.CustomerFilters{
			Stage:           input.Stage,
			VendorID:        input.VendorID,
			LenderID:        input.LenderID,
			Search:          input.Search,
			Limit:           input.Limit,
			CursorCreatedAt: input.CursorCreatedAt,
			CursorID:        input.CursorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Customer `json:"body"`
		}{Body: customers}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-customer",
		Method:      http.MethodGet,
		Path:        "/customers/{customer_id}",
		Summary:     "Get customer",
	}, func(ctx context.Context, input *CustomerPath) (*struct {
		Body domain.Customer `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		c, err := e.Repo.GetCustomer(ctx, input.CustomerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Customer `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-customer",
		Method:      http.MethodPatch,
		Path:        "/customers/{customer_id}",
		Summary:     "Update customer",
	}, func(ctx context.Context, input *struct {
		CustomerPath
		Body UpdateCustomerRequest `json:"body"`
	}) (*struct {
		Body domain.Customer `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleAdmin); authErr != nil {
			return nil, authErr
		}
		c, err := e.UpdateCustomer(ctx, input.CustomerID, engine.CustomerUpdate{
			BusinessName:    input.Body.BusinessName,
			OwnerName:       input.Body.OwnerName,
			Email:           input.Body.Email,
			Phone:           input.Body.Phone,
			RequestedAmount: input.Body.RequestedAmount,
			Notes:           input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Customer `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-customer-stage",
		Method:      http.MethodPost,
		Path:        "/customers/{customer_id}/stage",
		Summary:     "Change pipeline stage",
	}, func(ctx context.Context, input *struct {
		CustomerPath
		Body ChangeStageRequest `json:"body"`
	}) (*struct {
		Body domain.Customer `json:"body"`
	}, error) {
		minRole := domain.RoleAdmin
		if input.Body.Force {
			minRole = domain.RoleSuperAdmin
		}
		if _, authErr := requireRole(ctx, minRole); authErr != nil {
			return nil, authErr
		}
		c, err := e.ChangeCustomerStage(ctx, input.CustomerID, engine.StageChange{
			To:           input.Body.Stage,
			Force:        input.Body.Force,
			FundedAmount: input.Body.FundedAmount,
			LenderID:     input.Body.LenderID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Customer `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-customer",
		Method:      http.MethodDelete,
		Path:        "/customers/{customer_id}",
		Summary:     "Delete customer",
	}, func(ctx context.Context, input *CustomerPath) (*struct{}, error) {
		if _, authErr := requireRole(ctx, domain.RoleSuperAdmin); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteCustomer(ctx, input.CustomerID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pipeline-summary",
		Method:      http.MethodGet,
		Path:        "/customers/summary",
		Summary:     "Customer counts per stage",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]int `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		counts, err := e.Repo.CountCustomersByStage(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]int `json:"body"`
		}{Body: counts}, nil
	})
}

func registerVendors(api huma.API, e *engine.Engine) {
	type VendorPath struct {
		VendorID string `path:"vendor_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-vendor",
		Method:        http.MethodPost,
		Path:          "/vendors",
		Summary:       "Create marketing vendor",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body VendorRequest `json:"body"`
	}) (*struct {
		Body VendorResponse `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleAdmin); authErr != nil {
			return nil, authErr
		}
		v, err := e.CreateVendor(ctx, engine.VendorInput{
			Name:           input.Body.Name,
			Channel:        input.Body.Channel,
			MonthlySpend:   input.Body.MonthlySpend,
			LeadsDelivered: input.Body.LeadsDelivered,
			Active:         input.Body.Active,
			Notes:          input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body VendorResponse `json:"body"`
		}{Body: vendorResponse(v)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-vendors",
		Method:      http.MethodGet,
		Path:        "/vendors",
		Summary:     "List vendors with derived cost per lead",
	}, func(ctx context.Context, input *struct {
		ActiveOnly bool `query:"active_only"`
	}) (*struct {
		Body []VendorResponse `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		vendors, err := e.Repo.ListVendors(ctx, input.ActiveOnly)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]VendorResponse, len(vendors))
		for i, v := range vendors {
			out[i] = vendorResponse(v)
		}
		return &struct {
			Body []VendorResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-vendor",
		Method:      http.MethodGet,
		Path:        "/vendors/{vendor_id}",
		Summary:     "Get vendor",
	}, func(ctx context.Context, input *VendorPath) (*struct {
		Body VendorResponse `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		v, err := e.Repo.GetVendor(ctx, input.VendorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body VendorResponse `json:"body"`
		}{Body: vendorResponse(v)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-vendor",
		Method:      http.MethodPut,
		Path:        "/vendors/{vendor_id}",
		Summary:     "Update vendor",
	}, func(ctx context.Context, input *struct {
		VendorPath
		Body VendorRequest `json:"body"`
	}) (*struct {
		Body VendorResponse `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleAdmin); authErr != nil {
			return nil, authErr
		}
		v, err := e.UpdateVendor(ctx, input.VendorID, engine.VendorInput{
			Name:           input.Body.Name,
			Channel:        input.Body.Channel,
			MonthlySpend:   input.Body.MonthlySpend,
			LeadsDelivered: input.Body.LeadsDelivered,
			Active:         input.Body.Active,
			Notes:          input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body VendorResponse `json:"body"`
		}{Body: vendorResponse(v)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-vendor",
		Method:      http.MethodDelete,
		Path:        "/vendors/{vendor_id}",
		Summary:     "Delete vendor",
	}, func(ctx context.Context, input *VendorPath) (*struct{}, error) {
		if _, authErr := requireRole(ctx, domain.RoleSuperAdmin); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteVendor(ctx, input.VendorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDocuments(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-document",
		Method:        http.MethodPost,
		Path:          "/customers/{customer_id}/documents",
		Summary:       "Register document metadata",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		CustomerID string                  `path:"customer_id"`
		Body       RegisterDocumentRequest `json:"body"`
	}) (*struct {
		Body domain.Document `json:"body"`
	}, error) {
		principal, authErr := requireRole(ctx, domain.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.RegisterDocument(ctx, principal.ActorID, engine.DocumentInput{
			CustomerID: input.CustomerID,
			Name:       input.Body.Name,
			Kind:       input.Body.Kind,
			StorageKey: input.Body.StorageKey,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Document `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-documents",
		Method:      http.MethodGet,
		Path:        "/customers/{customer_id}/documents",
		Summary:     "List customer documents",
	}, func(ctx context.Context, input *struct {
		CustomerID string `path:"customer_id"`
	}) (*struct {
		Body []domain.Document `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		if _, err := e.Repo.GetCustomer(ctx, input.CustomerID); err != nil {
			return nil, handleError(err)
		}
		docs, err := e.Repo.ListDocuments(ctx, input.CustomerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Document `json:"body"`
		}{Body: docs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-document",
		Method:      http.MethodDelete,
		Path:        "/documents/{document_id}",
		Summary:     "Delete document metadata",
	}, func(ctx context.Context, input *struct {
		DocumentID string `path:"document_id"`
	}) (*struct{}, error) {
		if _, authErr := requireRole(ctx, domain.RoleSuperAdmin); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteDocument(ctx, input.DocumentID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerInbox(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "send-message",
		Method:        http.MethodPost,
		Path:          "/customers/{customer_id}/messages",
		Summary:       "Send inbox message",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		CustomerID string             `path:"customer_id"`
		Body       SendMessageRequest `json:"body"`
	}) (*struct {
		Body domain.Message `json:"body"`
	}, error) {
		principal, authErr := requireRole(ctx, domain.RoleUser)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.SendMessage(ctx, principal.ActorID, input.CustomerID, input.Body.Subject, input.Body.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Message `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-messages",
		Method:      http.MethodGet,
		Path:        "/messages",
		Summary:     "List inbox messages",
	}, func(ctx context.Context, input *struct {
		CustomerID string `query:"customer_id"`
		UnreadOnly bool   `query:"unread_only"`
		Limit      int    `query:"limit" minimum:"0"`
	}) (*struct {
		Body []domain.Message `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		msgs, err := e.Repo.ListMessages(ctx, repo.MessageFilters{
			CustomerID: input.CustomerID,
			UnreadOnly: input.UnreadOnly,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Message `json:"body"`
		}{Body: msgs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-message",
		Method:      http.MethodPost,
		Path:        "/messages/{message_id}/read",
		Summary:     "Mark message read",
	}, func(ctx context.Context, input *struct {
		MessageID string `path:"message_id"`
	}) (*struct{}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.MarkMessageRead(ctx, input.MessageID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerCalc(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "calc",
		Method:      http.MethodPost,
		Path:        "/calc",
		Summary:     "Run the unit economics calculator",
	}, func(ctx context.Context, input *struct {
		Body CalcRequest `json:"body"`
	}) (*struct {
		Body CalcResponse `json:"body"`
	}, error) {
		principal, authErr := requireRole(ctx, domain.RoleUser)
		if authErr != nil {
			return nil, authErr
		}
		if err := input.Body.Inputs.Validate(); err != nil {
			return nil, newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), nil)
		}
		out := CalcResponse{Metrics: unitecon.Compute(input.Body.Inputs)}
		if input.Body.Save != "" {
			s, err := e.SaveScenario(ctx, principal.ActorID, input.Body.Save, input.Body.Inputs)
			if err != nil {
				return nil, handleError(err)
			}
			out.ScenarioID = s.ID
		}
		return &struct {
			Body CalcResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-scenarios",
		Method:      http.MethodGet,
		Path:        "/calc/scenarios",
		Summary:     "List saved scenarios",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.CalcScenario `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		scenarios, err := e.Repo.ListScenarios(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.CalcScenario `json:"body"`
		}{Body: scenarios}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-scenario",
		Method:      http.MethodGet,
		Path:        "/calc/scenarios/{scenario_id}",
		Summary:     "Get scenario with recomputed metrics",
	}, func(ctx context.Context, input *struct {
		ScenarioID string `path:"scenario_id"`
	}) (*struct {
		Body ScenarioResponse `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleUser); authErr != nil {
			return nil, authErr
		}
		s, in, metrics, err := e.LoadScenario(ctx, input.ScenarioID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ScenarioResponse `json:"body"`
		}{Body: ScenarioResponse{Scenario: s, Inputs: in, Metrics: metrics}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-scenario",
		Method:      http.MethodDelete,
		Path:        "/calc/scenarios/{scenario_id}",
		Summary:     "Delete scenario",
	}, func(ctx context.Context, input *struct {
		ScenarioID string `path:"scenario_id"`
	}) (*struct{}, error) {
		if _, authErr := requireRole(ctx, domain.RoleSuperAdmin); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteScenario(ctx, input.ScenarioID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerAPIKeys(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/apikeys",
		Summary:       "Issue API key",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body CreateAPIKeyResponse `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleSuperAdmin); authErr != nil {
			return nil, authErr
		}
		if input.Body.ActorID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		role := domain.RoleUser
		if input.Body.Role != "" {
			parsed, err := domain.ParseRole(input.Body.Role)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
			}
			role = parsed
		}
		id, raw, err := issueAPIKey(ctx, e, input.Body.ActorID, input.Body.Name, role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CreateAPIKeyResponse `json:"body"`
		}{Body: CreateAPIKeyResponse{ID: id, Key: raw}}, nil
	})
}

// issueAPIKey mints a raw key, stores only its hash, and upserts the actor's
// profile with the requested role.
func issueAPIKey(ctx context.Context, e *engine.Engine, actorID, name string, role domain.Role) (string, string, error) {
	raw := e.NewID() + e.NewID()
	k := domain.APIKey{
		ID:        e.NewID(),
		ActorID:   actorID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: e.Now().UTC().Format(time.RFC3339),
	}
	profile := domain.Profile{ActorID: actorID, Role: role, CreatedAt: k.CreatedAt}
	if existing, err := e.Repo.GetProfile(ctx, actorID); err == nil {
		profile.Email = existing.Email
		profile.CreatedAt = existing.CreatedAt
	}
	if err := e.Repo.UpsertProfile(ctx, profile); err != nil {
		return "", "", err
	}
	if err := e.Repo.InsertAPIKey(ctx, k); err != nil {
		return "", "", err
	}
	return k.ID, raw, nil
}

func registerMe(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WhoAmIResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body WhoAmIResponse `json:"body"`
		}{Body: WhoAmIResponse{
			ActorID: principal.ActorID,
			Role:    string(principal.Role),
			Source:  principal.Source,
		}}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		actor := strings.TrimSpace(input.Body.ActorID)
		if actor == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		role := domain.RoleUser
		if input.Body.Role != "" {
			parsed, err := domain.ParseRole(input.Body.Role)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
			}
			role = parsed
		}
		token, err := SignToken(authCfg.JWTSecret, actor, role, 24*time.Hour)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}
