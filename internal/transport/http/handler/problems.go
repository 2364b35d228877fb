package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/quizhub/quiz-api/internal/application/problem"
	"github.com/quizhub/quiz-api/internal/domain"
	"github.com/quizhub/quiz-api/internal/transport/http/middleware"
)

// ProblemHandler serves /api/problems. Listing and reading are public;
// status routes need a token.
type ProblemHandler struct {
	svc problem.Service
}

func NewProblemHandler(svc problem.Service) *ProblemHandler { return &ProblemHandler{svc: svc} }

func (h *ProblemHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ProblemFilter{
		Difficulty: q.Get("difficulty"),
		Category:   q.Get("category"),
	}
	for _, tag := range strings.Split(q.Get("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			filter.Tags = append(filter.Tags, tag)
		}
	}
	problems, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, problems)
}

func (h *ProblemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateStatus records progress for the caller, or for user_id when the
// caller is an admin.
func (h *ProblemHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateProblemStatusRequest
	if !decode(w, r, &req) {
		return
	}
	userID := claims.UserID
	if req.UserID != nil {
		userID = *req.UserID
	}
	if !claims.CanActFor(userID) {
		writeError(w, http.StatusForbidden, "cannot update another user's status")
		return
	}
	out, err := h.svc.UpdateStatus(r.Context(), userID, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProblemHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(w, r, "userId")
	if !ok {
		return
	}
	if _, ok := actingFor(w, r, userID); !ok {
		return
	}
	st, err := h.svc.Status(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *ProblemHandler) Completed(w http.ResponseWriter, r *http.Request) {
	h.listForUser(w, r, h.svc.Completed)
}

func (h *ProblemHandler) Bookmarked(w http.ResponseWriter, r *http.Request) {
	h.listForUser(w, r, h.svc.Bookmarked)
}

func (h *ProblemHandler) listForUser(w http.ResponseWriter, r *http.Request, list func(context.Context, uint64) ([]domain.Problem, error)) {
	userID, ok := uintParam(w, r, "userId")
	if !ok {
		return
	}
	if _, ok := actingFor(w, r, userID); !ok {
		return
	}
	problems, err := list(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, problems)
}
