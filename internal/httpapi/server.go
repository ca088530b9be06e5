// Package httpapi is the HTTP control/inspection front end: routing,
// CORS, body-size guarding, and JSON/file-streaming responses, per
// spec.md §4.1. Grounded on cmd/coordinator/main.go's handler-per-
// concern server struct and Generativebots-ocx-backend-go-svc's
// gorilla/mux + CORS-middleware composition. Preflight (OPTIONS)
// answers on every path; the Access-Control-Allow-Origin/Vary pair on
// a substantive response is reserved for the public, browser-facing
// routes (everything except /sync/*, which is master/slave protocol
// traffic) by corsMiddleware's isPublicPath check.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/snokvist/autod-sub000/internal/config"
	"github.com/snokvist/autod-sub000/internal/master"
	"github.com/snokvist/autod-sub000/internal/scanner"
	"github.com/snokvist/autod-sub000/internal/slave"
)

// Server holds every collaborator a handler might need. Master and
// SlaveLoop are mutually exclusive in practice (a node plays at most
// one sync role) but both may be nil for a plain node.
type Server struct {
	log       *logrus.Entry
	cfg       *config.Store
	scn       *scanner.Scanner
	master    *master.Registry
	slaveLoop *slave.Loop

	httpSrv *http.Server
}

// New builds a Server and its router.
func New(log *logrus.Logger, cfg *config.Store, scn *scanner.Scanner, m *master.Registry, sl *slave.Loop) *Server {
	return &Server{
		log:       log.WithField("component", "httpapi"),
		cfg:       cfg,
		scn:       scn,
		master:    m,
		slaveLoop: sl,
	}
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(connectionCloseMiddleware, corsMiddleware, bodyLimitMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/caps", s.handleCaps).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/exec", s.handleExec).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/udp", s.handleUDP).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/nodes", s.handleNodes).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	r.PathPrefix("/media/").HandlerFunc(s.handleMedia).Methods(http.MethodGet, http.MethodHead, http.MethodOptions)

	r.HandleFunc("/sync/register", s.handleSyncRegister).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/sync/slaves", s.handleSyncSlaves).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/sync/push", s.handleSyncPush).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/sync/bind", s.handleSyncBind).Methods(http.MethodPost, http.MethodOptions)

	r.PathPrefix("/").HandlerFunc(s.handleUIAsset).Methods(http.MethodGet, http.MethodOptions)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{"error": "not_found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methodNotAllowed(w)
	})

	return r
}

// Start begins serving on listenAddr in the background. The teacher's
// cmd/coordinator/main.go pairs a goroutine ListenAndServe with
// Shutdown(ctx) on signal; this keeps the same shape.
func (s *Server) Start(listenAddr string) <-chan error {
	s.httpSrv = &http.Server{
		Addr:              listenAddr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	return errCh
}

// Shutdown gracefully stops the listener, joining any in-flight
// handlers within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
