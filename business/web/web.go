// Package web serves the shop front end API: room join tokens, agent
// readiness and the product catalog.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/superfeelapi/goVoiceAgent/foundation/external/inventory"
	"go.uber.org/zap"
)

const (
	tokenValidity    = time.Hour
	roomEmptyTimeout = 10 * time.Minute

	defaultParticipant = "Customer"
)

// Rooms issues join tokens and pre-creates rooms.
type Rooms interface {
	URL() string
	Token(room, identity, name string, validFor time.Duration) (string, error)
	CreateRoom(ctx context.Context, name string, emptyTimeout time.Duration) error
}

type Handlers struct {
	rooms   Rooms
	catalog func() (inventory.Catalog, error)
	logger  *zap.SugaredLogger
}

func New(rooms Rooms, catalog func() (inventory.Catalog, error), logger *zap.SugaredLogger) *Handlers {
	return &Handlers{
		rooms:   rooms,
		catalog: catalog,
		logger:  logger,
	}
}

// Router returns the API routes.
func (h *Handlers) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(h.loggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/token", h.token).Methods(http.MethodPost)
	api.HandleFunc("/start-agent", h.startAgent).Methods(http.MethodPost)
	api.HandleFunc("/products", h.products).Methods(http.MethodGet)

	return router
}

type TokenRequest struct {
	RoomName        string `json:"room_name"`
	ParticipantName string `json:"participant_name"`
}

type TokenResponse struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	RoomName string `json:"room_name"`
}

type StartAgentResponse struct {
	Status   string `json:"status"`
	RoomName string `json:"room_name"`
	Message  string `json:"message"`
}

func (h *Handlers) token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}

	if strings.TrimSpace(req.RoomName) == "" {
		req.RoomName = NewRoomName()
	}
	if strings.TrimSpace(req.ParticipantName) == "" {
		req.ParticipantName = defaultParticipant
	}

	jwt, err := h.rooms.Token(req.RoomName, req.ParticipantName, req.ParticipantName, tokenValidity)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}

	// The room may already exist.
	if err := h.rooms.CreateRoom(r.Context(), req.RoomName, roomEmptyTimeout); err != nil {
		h.logger.Infow("web: token: room creation", "room", req.RoomName, "ERROR", err)
	}

	h.respond(w, http.StatusOK, TokenResponse{
		Token:    jwt,
		URL:      h.rooms.URL(),
		RoomName: req.RoomName,
	})
}

func (h *Handlers) startAgent(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}

	if strings.TrimSpace(req.RoomName) == "" {
		h.respondError(w, http.StatusBadRequest, errors.New("room_name is required"))
		return
	}

	h.respond(w, http.StatusOK, StartAgentResponse{
		Status:   "ready",
		RoomName: req.RoomName,
		Message:  "Agent worker should be running. Agent will auto-join when participant connects.",
	})
}

func (h *Handlers) products(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.catalog()
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err)
		return
	case err != nil:
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}

	h.respond(w, http.StatusOK, catalog)
}

// NewRoomName returns a fresh shop room name.
func NewRoomName() string {
	return "shop-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// =====================================================================================================================

func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handlers) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Errorw("web: respond", "ERROR", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, err error) {
	h.logger.Errorw("web: request failed", "status", status, "ERROR", err)
	h.respond(w, status, map[string]string{"error": err.Error()})
}

func (h *Handlers) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Infow("web: request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr, "took", time.Since(start))
	})
}
