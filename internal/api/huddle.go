package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"

	"huddle/internal/config"
	"huddle/internal/database"
	"huddle/internal/server"
)

type HuddleApp struct {
	log             *log.Logger
	db              database.HuddleRepository
	srv             *http.Server
	hub             *server.Hub
	signingKey      []byte
	allowedOrigins  []string
	generateShortId func() (string, error)
}

func NewHuddleApp(mux *http.ServeMux, logger *log.Logger, hub *server.Hub, db database.HuddleRepository, cfg *config.Config) *HuddleApp {
	s := &HuddleApp{
		log:             logger,
		db:              db,
		hub:             hub,
		signingKey:      cfg.SigningKey,
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("PATCH /api/messages", s.authMiddleware(s.editMessage))
	mux.Handle("DELETE /api/messages", s.authMiddleware(s.deleteMessage))
	mux.Handle("GET /api/threads", s.authMiddleware(s.getThreadMessages))
	mux.Handle("PATCH /api/threads", s.authMiddleware(s.editThreadMessage))
	mux.Handle("DELETE /api/threads", s.authMiddleware(s.deleteThreadMessage))
	mux.Handle("POST /api/read", s.authMiddleware(s.markChannelRead))
	mux.Handle("GET /api/read", s.authMiddleware(s.getChannelReads))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))
	mux.HandleFunc("GET /healthz", s.health)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *HuddleApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *HuddleApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
