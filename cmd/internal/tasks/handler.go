package tasks

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"tasker/cmd/internal/auth/session"
	"tasker/cmd/internal/httpx"
)

// Resources is the task service surface used by the handlers.
type Resources interface {
	Create(ctx context.Context, caller session.Identity, in CreateInput) (Task, error)
	List(ctx context.Context, caller session.Identity) ([]Task, error)
	Get(ctx context.Context, caller session.Identity, id string) (Task, error)
	Update(ctx context.Context, caller session.Identity, id string, in UpdateInput) (Task, error)
	Delete(ctx context.Context, caller session.Identity, id string) error
}

// Guard wraps handlers that need an authenticated Identity.
type Guard interface {
	Require(next http.Handler) http.Handler
}

type Handler struct {
	log          *slog.Logger
	tasks        Resources
	guard        Guard
	maxBodyBytes int64
}

func NewHandler(log *slog.Logger, tasks Resources, guard Guard, maxBodyBytes int64) (*Handler, error) {
	if tasks == nil {
		return nil, errors.New("tasks: nil service")
	}
	if guard == nil {
		return nil, errors.New("tasks: nil guard")
	}
	if log == nil {
		log = slog.Default()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = httpx.DefaultMaxBodyBytes
	}
	return &Handler{log: log, tasks: tasks, guard: guard, maxBodyBytes: maxBodyBytes}, nil
}

// Register wires the task routes onto mux. Every route requires a bearer token.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.Handle("POST /tasks", h.guard.Require(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /tasks", h.guard.Require(http.HandlerFunc(h.handleList)))
	mux.Handle("GET /tasks/{id}", h.guard.Require(http.HandlerFunc(h.handleGet)))
	mux.Handle("PUT /tasks/{id}", h.guard.Require(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("DELETE /tasks/{id}", h.guard.Require(http.HandlerFunc(h.handleDelete)))
}

type createRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

type updateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

type createResponse struct {
	ID      string `json:"id"`
	Task    Task   `json:"task"`
	Message string `json:"message"`
}

type updateResponse struct {
	Task    Task   `json:"task"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	// Unknown fields such as owner_id are dropped by the decoder.
	var req createRequest
	if err := httpx.DecodeJSONLenient(w, r, h.maxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	task, err := h.tasks.Create(r.Context(), caller, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		h.writeError(w, "tasks.create.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createResponse{ID: task.ID, Task: task, Message: "task created"})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	list, err := h.tasks.List(r.Context(), caller)
	if err != nil {
		h.writeError(w, "tasks.list.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	task, err := h.tasks.Get(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		h.writeError(w, "tasks.get.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := httpx.DecodeJSONLenient(w, r, h.maxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	task, err := h.tasks.Update(r.Context(), caller, r.PathValue("id"), UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		h.writeError(w, "tasks.update.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updateResponse{Task: task, Message: "task updated"})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	if err := h.tasks.Delete(r.Context(), caller, r.PathValue("id")); err != nil {
		h.writeError(w, "tasks.delete.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "task deleted"})
}

func callerFrom(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	caller, ok := session.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return session.Identity{}, false
	}
	return caller, true
}

func (h *Handler) writeError(w http.ResponseWriter, event string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "task not found")
	case errors.Is(err, ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "title is required")
	case errors.Is(err, session.ErrUnauthenticated):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	default:
		h.log.Error(event, "err", err)
		httpx.WriteInternal(w)
	}
}
