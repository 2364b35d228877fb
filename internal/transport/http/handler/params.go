package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	jwtinfra "github.com/quizhub/quiz-api/internal/infrastructure/jwt"
	"github.com/quizhub/quiz-api/internal/pkg/validate"
	"github.com/quizhub/quiz-api/internal/transport/http/middleware"
)

// uintParam parses a numeric URL parameter, writing a 400 on failure.
func uintParam(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || v == 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// actingFor returns the caller's claims if they may act on userID's
// resources: their own, or anyone's for an admin.
func actingFor(w http.ResponseWriter, r *http.Request, userID uint64) (*jwtinfra.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	if !claims.CanActFor(userID) {
		writeError(w, http.StatusForbidden, "cannot access another user's data")
		return nil, false
	}
	return claims, true
}
