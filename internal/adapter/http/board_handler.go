package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tabledesk/orderboard/internal/adapter/backend"
	"github.com/tabledesk/orderboard/internal/adapter/logger"
	"github.com/tabledesk/orderboard/internal/adapter/ws"
	appsync "github.com/tabledesk/orderboard/internal/app/sync"

	"github.com/tabledesk/orderboard/internal/app/board"
	"github.com/tabledesk/orderboard/internal/domain"
)

const sessionHeader = "X-Session-ID"

type BoardHandler struct {
	service *board.Service
	engine  *appsync.Engine
	hub     *ws.Hub
	logger  logger.Logger
}

func NewBoardHandler(service *board.Service, engine *appsync.Engine, hub *ws.Hub, lgr logger.Logger) *BoardHandler {
	return &BoardHandler{
		service: service,
		engine:  engine,
		hub:     hub,
		logger:  lgr,
	}
}

// Register wires all routes onto the mux.
func (h *BoardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/sessions", h.handleSessions)
	mux.HandleFunc("/sessions/", h.handleSessionByID)
	mux.HandleFunc("/board", h.handleBoard)
	mux.HandleFunc("/orders/", h.handleOrders)
	mux.HandleFunc("/confirmations/", h.handleConfirmations)
	mux.HandleFunc("/sync/refresh", h.handleRefresh)
	mux.HandleFunc("/sync/pause", h.handlePause)
	mux.HandleFunc("/sync/resume", h.handleResume)
	mux.HandleFunc("/sync/state", h.handleSyncState)
	mux.HandleFunc("/ws", h.handleWS)
}

type createSessionRequest struct {
	Role string `json:"role"`
}

type errorResponse struct {
	Error                   string `json:"error"`
	Retryable               bool   `json:"retryable,omitempty"`
	NeedsReasonConfirmation bool   `json:"needs_reason_confirmation,omitempty"`
}

func (h *BoardHandler) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "role must be one of: kitchen, server, admin")
		return
	}

	sess := h.service.CreateSession(role)
	h.respondJSON(w, http.StatusCreated, sess)
}

func (h *BoardHandler) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	parts := pathParts(r.URL.Path)
	if len(parts) != 2 {
		h.respondError(w, http.StatusNotFound, "Not found")
		return
	}

	if err := h.service.EndSession(parts[1]); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"ended": true})
}

func (h *BoardHandler) handleBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	view, err := h.service.Board(r.Header.Get(sessionHeader))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// handleOrders routes /orders/{id}/action, /orders/{id}/cancel,
// /orders/{id}/status, and /orders/{id}/items/{itemID}/prepared.
func (h *BoardHandler) handleOrders(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path)
	if len(parts) < 3 {
		h.respondError(w, http.StatusNotFound, "Not found")
		return
	}

	orderID := parts[1]
	sessionID := r.Header.Get(sessionHeader)

	switch {
	case len(parts) == 3 && parts[2] == "action" && r.Method == http.MethodPost:
		result, err := h.service.RequestAction(r.Context(), sessionID, orderID)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, result)

	case len(parts) == 3 && parts[2] == "cancel" && r.Method == http.MethodPost:
		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		result, err := h.service.RequestCancellation(sessionID, orderID, strings.TrimSpace(req.Reason))
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, result)

	case len(parts) == 3 && parts[2] == "status" && r.Method == http.MethodPatch:
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		result, err := h.service.RequestAdminStatus(r.Context(), sessionID, orderID, domain.Status(req.Status))
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, result)

	case len(parts) == 5 && parts[2] == "items" && parts[4] == "prepared" && r.Method == http.MethodPost:
		marked, err := h.service.ToggleItemPrepared(sessionID, orderID, parts[3])
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]bool{"prepared": marked})

	default:
		h.respondError(w, http.StatusNotFound, "Not found")
	}
}

// handleConfirmations routes /confirmations/{token} (PATCH reason, DELETE
// dismiss) and /confirmations/{token}/confirm (POST).
func (h *BoardHandler) handleConfirmations(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path)
	if len(parts) < 2 {
		h.respondError(w, http.StatusNotFound, "Not found")
		return
	}

	token := parts[1]
	sessionID := r.Header.Get(sessionHeader)

	switch {
	case len(parts) == 3 && parts[2] == "confirm" && r.Method == http.MethodPost:
		err := h.service.Confirm(r.Context(), sessionID, token)
		if errors.Is(err, board.ErrEmptyReason) {
			h.respondJSON(w, http.StatusConflict, errorResponse{
				Error:                   err.Error(),
				NeedsReasonConfirmation: true,
			})
			return
		}
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]bool{"submitted": true})

	case len(parts) == 2 && r.Method == http.MethodPatch:
		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := h.service.UpdateReason(sessionID, token, strings.TrimSpace(req.Reason)); err != nil {
			h.respondServiceError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]bool{"updated": true})

	case len(parts) == 2 && r.Method == http.MethodDelete:
		if err := h.service.Dismiss(sessionID, token); err != nil {
			h.respondServiceError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]bool{"dismissed": true})

	default:
		h.respondError(w, http.StatusNotFound, "Not found")
	}
}

func (h *BoardHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h.engine.Refresh()
	h.respondJSON(w, http.StatusAccepted, map[string]bool{"requested": true})
}

func (h *BoardHandler) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h.engine.Pause()
	h.respondJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (h *BoardHandler) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h.engine.Resume()
	h.respondJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func (h *BoardHandler) handleSyncState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	state := h.engine.State()
	resp := map[string]interface{}{
		"paused":         state.Paused,
		"in_flight":      state.InFlight,
		"stale":          state.Stale,
		"last_refreshed": state.LastRefreshed,
	}
	if state.LastError != nil {
		resp["error"] = state.LastError.Error()
		resp["retryable"] = backend.IsRetryable(state.LastError)
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *BoardHandler) handleWS(w http.ResponseWriter, r *http.Request) {
	role, ok := domain.ParseRole(r.URL.Query().Get("role"))
	if !ok {
		h.respondError(w, http.StatusBadRequest, "role query parameter is required")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	h.hub.Serve(w, r, role, sessionID)
}

func pathParts(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func (h *BoardHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrUnknownSession):
		h.respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, board.ErrOrderNotFound), errors.Is(err, board.ErrNoPendingConfirmation):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, board.ErrNoActionAvailable):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, board.ErrRoleNotAllowed):
		h.respondError(w, http.StatusForbidden, err.Error())
	default:
		h.respondBackendError(w, err)
	}
}

// respondBackendError maps the backend error taxonomy onto this service's
// responses: 4xx rejections pass through as final, everything else is a
// retryable upstream failure.
func (h *BoardHandler) respondBackendError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && !apiErr.Retryable() {
		h.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: apiErr.Message})
		return
	}

	h.respondJSON(w, http.StatusBadGateway, errorResponse{
		Error:     err.Error(),
		Retryable: backend.IsRetryable(err),
	})
}

func (h *BoardHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, errorResponse{Error: message})
}

func (h *BoardHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
