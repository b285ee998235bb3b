package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/captain-draft/internal/api/middleware"
	"github.com/mcoot/captain-draft/internal/api/request"
	"github.com/mcoot/captain-draft/internal/api/response"
	"github.com/mcoot/captain-draft/internal/model"
	"github.com/mcoot/captain-draft/internal/services/secrets"
	"github.com/mcoot/captain-draft/internal/services/session"
	"github.com/mcoot/captain-draft/internal/storage"
)

// SessionHandler handles draft session endpoints
type SessionHandler struct {
	registry *session.Registry
	storage  storage.Storage
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *session.Registry, storage storage.Storage) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		storage:  storage,
	}
}

// Create handles POST /api/v1/sessions (and the legacy POST /api/create)
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("captains must be an array of names"))
		return
	}

	if err := req.Validate(); err != nil {
		WriteError(w, NewInvalidRequestError(err.Error()))
		return
	}

	sess, err := h.registry.Create(r.Context(), req.Captains)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CreateSession{
		ID:     string(sess.ID()),
		Secret: sess.HostSecret(),
	})
}

// Result handles GET /api/v1/sessions/{id}/result
func (h *SessionHandler) Result(w http.ResponseWriter, r *http.Request) {
	id := model.SessionID(mux.Vars(r)["id"])
	secret := middleware.MustGetSecret(r.Context())

	result, err := h.storage.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrResultNotFound) {
			WriteError(w, err)
			return
		}
		WriteError(w, NewUnavailableError())
		return
	}

	if !secrets.VerifySecret(result.HostSecretHash, secret) {
		WriteError(w, model.ErrSecretNotFound)
		return
	}

	response.JSON(w, http.StatusOK, response.DraftResultFromModel(result))
}
