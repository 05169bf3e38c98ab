package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/estatetools/opsdash/internal/models"
	"github.com/estatetools/opsdash/internal/todo"
	"github.com/estatetools/opsdash/internal/validation"
)

const (
	// DefaultWindowDays is the span on each side of today used when a
	// generation request does not name an explicit window
	DefaultWindowDays = 15
	// DefaultActionItemLimit caps the realtor action-item view
	DefaultActionItemLimit = 5
	// MaxNoteLength is the maximum length for a task note
	MaxNoteLength = 2000
)

// TaskHandler handles task-list requests
type TaskHandler struct {
	store *todo.Store
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(store *todo.Store) *TaskHandler {
	return &TaskHandler{store: store}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /todos prefix (e.g., from apiRouter.PathPrefix("/todos"))
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.AddManualTask).Methods("POST")
	r.HandleFunc("", h.RemoveTask).Methods("DELETE")
	r.HandleFunc("/generate", h.Generate).Methods("POST")
	r.HandleFunc("/restore", h.RestoreTask).Methods("POST")
	r.HandleFunc("/checkbox", h.UpdateCheckbox).Methods("PATCH")
	r.HandleFunc("/note", h.UpdateNote).Methods("PATCH")
	r.HandleFunc("/check", h.MarkChecked).Methods("POST")
	r.HandleFunc("/refresh-context", h.RefreshContext).Methods("POST")
	r.HandleFunc("/save", h.Save).Methods("POST")
	r.HandleFunc("/trash", h.ListTrash).Methods("GET")
	r.HandleFunc("/action-items", h.ActionItems).Methods("GET")
}

// GenerateRequest represents a generation request; both dates are optional
// and default to a window of DefaultWindowDays around today
type GenerateRequest struct {
	StartDate string `json:"start_date" validate:"omitempty,iso_date"`
	EndDate   string `json:"end_date" validate:"omitempty,iso_date"`
}

// AddManualTaskRequest represents a manual task addition
type AddManualTaskRequest struct {
	ApCode  string `json:"ap_code" validate:"required,min=1,max=50"`
	DueDate string `json:"due_date" validate:"omitempty,iso_date"`
}

// TaskKeyRequest identifies a task by apartment code and optional due date
type TaskKeyRequest struct {
	ApCode  string `json:"ap_code" validate:"required,min=1,max=50"`
	DueDate string `json:"due_date" validate:"omitempty,iso_date"`
}

// UpdateCheckboxRequest represents a checkbox update
type UpdateCheckboxRequest struct {
	ApCode  string `json:"ap_code" validate:"required,min=1,max=50"`
	DueDate string `json:"due_date" validate:"omitempty,iso_date"`
	Name    string `json:"name" validate:"required,checkbox_name"`
	Value   bool   `json:"value"`
}

// UpdateNoteRequest represents a note update
type UpdateNoteRequest struct {
	ApCode  string `json:"ap_code" validate:"required,min=1,max=50"`
	DueDate string `json:"due_date" validate:"omitempty,iso_date"`
	Note    string `json:"note" validate:"max=2000"`
}

// ListTasksResponse represents the active task list
type ListTasksResponse struct {
	Tasks []*models.Task `json:"tasks"`
	Dirty bool           `json:"dirty"`
}

// parseDue converts an optional ISO date string into a Date value.
// The empty string yields the zero Date (an undated task key).
func parseDue(s string) (models.Date, error) {
	if s == "" {
		return models.Date{}, nil
	}
	return models.ParseDate(s)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "Invalid field: " + verrs[0].Field()
	}
	return "Invalid request"
}

// ListTasks returns the active task list
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks: h.store.Tasks(),
		Dirty: h.store.Dirty(),
	})
}

// ListTrash returns the trash bin
func (h *TaskHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"tasks": h.store.Trash()})
}

// Generate regenerates the active list for the requested date window
func (h *TaskHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON in request body")
			return
		}
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	today := models.DateOf(time.Now())
	start := today.AddDays(-DefaultWindowDays)
	end := today.AddDays(DefaultWindowDays)
	if req.StartDate != "" {
		start, _ = models.ParseDate(req.StartDate)
	}
	if req.EndDate != "" {
		end, _ = models.ParseDate(req.EndDate)
	}
	if end.Before(start) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "end_date precedes start_date")
		return
	}

	h.store.Generate(r.Context(), start, end)

	respondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks: h.store.Tasks(),
		Dirty: h.store.Dirty(),
	})
}

// AddManualTask adds a manually created task to the active list
func (h *TaskHandler) AddManualTask(w http.ResponseWriter, r *http.Request) {
	var req AddManualTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON in request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	due, err := parseDue(req.DueDate)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid due_date")
		return
	}

	task, err := h.store.AddManual(r.Context(), req.ApCode, due)
	switch {
	case errors.Is(err, todo.ErrDuplicateTask):
		respondJSONError(w, http.StatusConflict, "Conflict", "Task already exists for that apartment and due date")
		return
	case errors.Is(err, todo.ErrUnknownApartment):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Unknown apartment code")
		return
	case err != nil:
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to add task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// RemoveTask moves a task from the active list to the trash bin
func (h *TaskHandler) RemoveTask(w http.ResponseWriter, r *http.Request) {
	h.moveTask(w, r, h.store.Remove)
}

// RestoreTask moves a task from the trash bin back to the active list
func (h *TaskHandler) RestoreTask(w http.ResponseWriter, r *http.Request) {
	h.moveTask(w, r, h.store.Restore)
}

func (h *TaskHandler) moveTask(w http.ResponseWriter, r *http.Request, op func(string, models.Date) error) {
	var req TaskKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON in request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	due, err := parseDue(req.DueDate)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid due_date")
		return
	}

	if err := op(req.ApCode, due); err != nil {
		switch {
		case errors.Is(err, todo.ErrTaskNotFound):
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		case errors.Is(err, todo.ErrDuplicateTask):
			respondJSONError(w, http.StatusConflict, "Conflict", "An active task already holds that key")
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to move task")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"moved": true})
}

// UpdateCheckbox sets one checkbox flag on a task.
// A request naming a task that no longer exists is acknowledged without effect.
func (h *TaskHandler) UpdateCheckbox(w http.ResponseWriter, r *http.Request) {
	var req UpdateCheckboxRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON in request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	due, err := parseDue(req.DueDate)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid due_date")
		return
	}

	if err := h.store.UpdateCheckbox(req.ApCode, req.Name, req.Value, due); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Unknown checkbox name")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"updated": true})
}

// UpdateNote sets the free-text note on a task.
// A request naming a task that no longer exists is acknowledged without effect.
func (h *TaskHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON in request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	due, err := parseDue(req.DueDate)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid due_date")
		return
	}

	h.store.UpdateNote(req.ApCode, validation.SanitizeText(req.Note), due)
	respondJSON(w, http.StatusOK, map[string]any{"updated": true})
}

// MarkChecked stamps a task as checked at the current time
func (h *TaskHandler) MarkChecked(w http.ResponseWriter, r *http.Request) {
	var req TaskKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON in request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	due, err := parseDue(req.DueDate)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid due_date")
		return
	}

	h.store.MarkChecked(req.ApCode, due)
	respondJSON(w, http.StatusOK, map[string]any{"checked": true})
}

// RefreshContext re-reads transaction and meter data and updates the
// contextual fields of existing tasks without touching their statuses
func (h *TaskHandler) RefreshContext(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RefreshContext(r.Context()); err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to refresh context data")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"refreshed": true})
}

// Save persists the current document
func (h *TaskHandler) Save(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Save(r.Context()); err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to save task list")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"saved": true})
}

// Reload discards any cached document and re-reads it from storage
func (h *TaskHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reload(r.Context()); err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to reload task list")
		return
	}
	respondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks: h.store.Tasks(),
		Dirty: h.store.Dirty(),
	})
}

// ActionItems returns the most urgent open tasks for one realtor
func (h *TaskHandler) ActionItems(w http.ResponseWriter, r *http.Request) {
	realtor := r.URL.Query().Get("realtor")
	if realtor == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Missing realtor parameter")
		return
	}

	limit := DefaultActionItemLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"realtor": realtor,
		"tasks":   h.store.ActionItems(realtor, limit),
	})
}
