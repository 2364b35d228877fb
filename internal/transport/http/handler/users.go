package handler

import (
	"net/http"

	"github.com/quizhub/quiz-api/internal/application/user"
	"github.com/quizhub/quiz-api/internal/domain"
)

// UserHandler serves /api/users. Every route runs behind Auth; List is
// additionally admin-only at the router.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]UserSummary, len(users))
	for i := range users {
		out[i] = toUserSummary(&users[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := actingFor(w, r, id); !ok {
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := actingFor(w, r, id); !ok {
		return
	}
	var req domain.UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.svc.UpdatePassword(r.Context(), id, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Courses(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := actingFor(w, r, id); !ok {
		return
	}
	courses, err := h.svc.Courses(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *UserHandler) CourseProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	courseID, ok := uintParam(w, r, "courseId")
	if !ok {
		return
	}
	if _, ok := actingFor(w, r, id); !ok {
		return
	}
	p, err := h.svc.CourseProgress(r.Context(), id, courseID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
