package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/adwski/game-relay/backend/model"
	"github.com/adwski/game-relay/backend/storage/memory"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownDeadline  = 10 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
	defaultRoomInfoTimeout   = 2 * time.Second
)

var (
	ErrUnexpected = errors.New("unexpected server error")
)

type (
	RoomService interface {
		RoomInfo(ctx context.Context, code string) (model.RoomInfo, error)
	}

	// WebSocketHandler serves upgraded connections. Close is called
	// on shutdown since hijacked connections are not tracked by http.Server.
	WebSocketHandler interface {
		http.Handler
		Close()
	}

	GenericResponse struct {
		Message string      `json:"message,omitempty"`
		Error   string      `json:"error,omitempty"`
		Data    interface{} `json:"data,omitempty"`
	}

	Server struct {
		logger zerolog.Logger
		svc    RoomService
		*http.Server
	}

	Config struct {
		Logger      *zerolog.Logger
		RoomService RoomService
		WebSocket   WebSocketHandler
		Metrics     http.Handler
		ListenAddr  string
	}
)

func NewServer(cfg Config) *Server {
	srv := &Server{
		logger: cfg.Logger.With().Str("component", "http-server").Logger(),
		svc:    cfg.RoomService,
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/rooms/{code}", srv.roomInfo)

	r := http.NewServeMux()
	r.Handle("GET /ws", cfg.WebSocket)
	r.Handle("GET /metrics", cfg.Metrics)
	r.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/api/", cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:         86400,
	}).Handler(api))

	srv.Server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	srv.RegisterOnShutdown(cfg.WebSocket.Close)
	return srv
}

func (srv *Server) roomInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultRoomInfoTimeout)
	defer cancel()

	info, err := srv.svc.RoomInfo(ctx, r.PathValue("code"))
	switch {
	case errors.Is(err, memory.ErrRoomNotFound):
		srv.writeJSON(w, http.StatusNotFound, &GenericResponse{Error: "room not found"})
	case err != nil:
		srv.logger.Error().Err(err).Msg("unable to get room info")
		srv.writeJSON(w, http.StatusInternalServerError, &GenericResponse{Error: ErrUnexpected.Error()})
	default:
		srv.writeJSON(w, http.StatusOK, &GenericResponse{Data: info})
	}
}

func (srv *Server) writeJSON(w http.ResponseWriter, code int, resp *GenericResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(code)
	if _, err = w.Write(b); err != nil {
		srv.logger.Error().Err(err).Msg("failed to write response")
	}
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	hErr := make(chan error, 1)
	go func() {
		hErr <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-hErr:
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Join(ErrUnexpected, err)
		}
	case <-ctx.Done():
		shCtx, shCancel := context.WithTimeout(context.Background(), defaultShutdownDeadline)
		defer shCancel()
		if err := srv.Shutdown(shCtx); err != nil {
			srv.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}
}
