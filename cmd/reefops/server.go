package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"reefops/internal/auth"
	"reefops/internal/errors"
	"reefops/internal/httputil"
	"reefops/internal/middleware"
	"reefops/internal/models"
	"reefops/internal/realtime"
	"reefops/internal/service"
	"reefops/internal/versioning"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Server struct {
	cfg          *models.Config
	router       *mux.Router
	logger       *logrus.Logger
	messages     service.MessageService
	schedule     service.ScheduleService
	scopes       service.ScopeStore
	hub          *realtime.Hub
	typing       *realtime.TypingRegistry
	upgrader     websocket.Upgrader
	server       *http.Server
	subscription *service.SubscriptionManager
}

func NewServer(cfg *models.Config, logger *logrus.Logger, messages service.MessageService, schedule service.ScheduleService, scopes service.ScopeStore, hub *realtime.Hub, typing *realtime.TypingRegistry) *Server {
	s := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		logger:   logger,
		messages: messages,
		schedule: schedule,
		scopes:   scopes,
		hub:      hub,
		typing:   typing,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		subscription: service.NewSubscriptionManager(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))
	s.router.Use(versioning.Middleware)

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebsocket()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Middleware(s.cfg.Auth))

	api.HandleFunc("/messages", s.handleSendMessage()).Methods(http.MethodPost)
	api.HandleFunc("/messages", s.handleListMessages()).Methods(http.MethodGet)
	api.HandleFunc("/messages/file", s.handleSendFile()).Methods(http.MethodPost)
	api.HandleFunc("/messages/search", s.handleSearch()).Methods(http.MethodGet)
	api.HandleFunc("/messages/stream", s.handleStream()).Methods(http.MethodGet)
	api.HandleFunc("/messages/{id}", s.handleEditMessage()).Methods(http.MethodPut)
	api.HandleFunc("/messages/{id}", s.handleDeleteMessage()).Methods(http.MethodDelete)
	api.HandleFunc("/messages/{id}/replies", s.handleReply()).Methods(http.MethodPost)
	api.HandleFunc("/messages/{id}/thread", s.handleThread()).Methods(http.MethodGet)
	api.HandleFunc("/messages/{id}/read", s.handleMarkRead()).Methods(http.MethodPost)
	api.HandleFunc("/messages/{id}/reactions", s.handleReaction()).Methods(http.MethodPost)

	api.HandleFunc("/chats/{id}", s.handleDeleteChat()).Methods(http.MethodDelete)

	api.HandleFunc("/notifications", s.handleListNotifications()).Methods(http.MethodGet)
	api.HandleFunc("/notifications/seen", s.handleMarkNotificationsSeen()).Methods(http.MethodPost)

	api.HandleFunc("/shifts", s.handleCreateShift()).Methods(http.MethodPost)
	api.HandleFunc("/shifts", s.handleListShifts()).Methods(http.MethodGet)
	api.HandleFunc("/shifts/{id}", s.handleUpdateShift()).Methods(http.MethodPut)
	api.HandleFunc("/shifts/{id}", s.handleDeleteShift()).Methods(http.MethodDelete)
	api.HandleFunc("/shifts/conflicts", s.handleCheckConflicts()).Methods(http.MethodGet)

	api.HandleFunc("/timeoff", s.handleRequestTimeOff()).Methods(http.MethodPost)
	api.HandleFunc("/timeoff", s.handleListTimeOff()).Methods(http.MethodGet)
	api.HandleFunc("/timeoff/{id}/decision", s.handleDecideTimeOff()).Methods(http.MethodPost)

	api.HandleFunc("/swaps", s.handleOfferSwap()).Methods(http.MethodPost)
	api.HandleFunc("/swaps", s.handleListSwaps()).Methods(http.MethodGet)
	api.HandleFunc("/swaps/{id}/accept", s.handleAcceptSwap()).Methods(http.MethodPost)
	api.HandleFunc("/swaps/{id}/cancel", s.handleCancelSwap()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.subscription.CancelAll()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
	}
}

// handleWebsocket upgrades the connection and hands it to the realtime hub.
// The token may arrive via query parameter because browsers cannot set
// headers on websocket dials.
func (s *Server) handleWebsocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserIDFrom(r.Context())
		name := ""
		if s.cfg.Auth.RequireAuth || auth.BearerToken(r, true) != "" {
			token := auth.BearerToken(r, true)
			claims, err := auth.ParseToken(s.cfg.Auth.JWTSecret, token)
			if err != nil {
				s.logger.WithField("client_ip", httputil.ClientIP(r)).Warn("Rejected websocket with invalid token")
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			userID = claims.UserID
		}
		if userID == "" {
			userID = r.URL.Query().Get("userId")
		}
		if userID == "" {
			http.Error(w, "user identity required", http.StatusUnauthorized)
			return
		}
		if user, err := s.scopes.GetUser(r.Context(), userID); err == nil && user != nil {
			name = user.DisplayName
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.WithError(err).WithField("client_ip", httputil.ClientIP(r)).Warn("Websocket upgrade failed")
			return
		}
		realtime.NewClient(s.hub, conn, userID, name)
	}
}

// handleStream serves a live message feed over server-sent events. The
// current window is pushed immediately and re-pushed whenever the scope
// changes. Reconnects for the same viewer and scope replace the previous
// subscription.
func (s *Server) handleStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgType := models.MessageType(r.URL.Query().Get("type"))
		scopeID := r.URL.Query().Get("scopeId")
		caller := s.callerID(r)
		if scopeID == "" || caller == "" {
			s.respondError(w, errors.NewValidationError("query", "scopeId and caller identity are required"))
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			s.respondError(w, errors.New(errors.ErrCodeServer, "streaming unsupported"))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		type snapshot struct {
			Messages []models.Message `json:"messages"`
		}
		events := make(chan []byte, 8)
		key := fmt.Sprintf("feed:%s:%s:%s", caller, msgType, scopeID)
		s.subscription.Replace(key, func() (func(), error) {
			teardown, err := s.messages.Subscribe(r.Context(), msgType, scopeID, caller, func(msgs []models.Message) {
				payload, err := json.Marshal(snapshot{Messages: msgs})
				if err != nil {
					return
				}
				select {
				case events <- payload:
				default:
					// Viewer is not draining; skip this snapshot, the next
					// change will push a fresh one.
				}
			})
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"type":    msgType,
					"scopeId": scopeID,
				}).Warn("failed to establish message subscription")
			}
			return teardown, err
		})
		defer s.subscription.Cancel(key)

		for {
			select {
			case <-r.Context().Done():
				return
			case payload := <-events:
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// respond writes a JSON body with the given status.
func (s *Server) respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// respondError maps service errors onto HTTP statuses with a safe message.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}
	s.respond(w, status, map[string]string{"error": errors.GetUserMessage(err)})
}

// callerID resolves the acting user: JWT claims when present, otherwise the
// X-User-ID header in deployments that front their own auth.
func (s *Server) callerID(r *http.Request) string {
	if id := auth.UserIDFrom(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-User-ID")
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer func() { _ = r.Body.Close() }()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewValidationError("body", "invalid JSON request body")
	}
	return nil
}
