package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-office/internal/config"
	"github.com/npezzotti/go-office/internal/database"
	"github.com/npezzotti/go-office/internal/server"
	"github.com/teris-io/shortid"
)

type OfficeApp struct {
	log            *log.Logger
	db             database.OfficeRepository
	srv            *http.Server
	office         *server.OfficeServer
	signingKey     []byte
	allowedOrigins []string
	roomCapacity   int
	sid            *shortid.Shortid
}

func NewOfficeApp(mux *http.ServeMux, logger *log.Logger, os *server.OfficeServer, db database.OfficeRepository, cfg *config.Config) (*OfficeApp, error) {
	sid, err := shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		return nil, fmt.Errorf("shortid: %w", err)
	}

	s := &OfficeApp{
		log:            logger,
		db:             db,
		office:         os,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		roomCapacity:   cfg.RoomCapacity,
		sid:            sid,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.Handle("DELETE /api/rooms", s.authMiddleware(s.deleteRoom))
	mux.Handle("GET /api/rooms", s.authMiddleware(s.getRooms))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("GET /api/webrtc/ice-servers", s.authMiddleware(s.iceServers))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.srv = srv
	return s, nil
}

func (s *OfficeApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *OfficeApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *OfficeApp) generateShortId() (string, error) {
	return s.sid.Generate()
}
