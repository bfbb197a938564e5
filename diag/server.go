package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server is the small debug HTTP surface an operator points a browser or
// curl at: Prometheus metrics plus a snapshot browser, in the shape of
// the teacher pack's own mux-router-plus-subrouter debug servers.
type Server struct {
	addr     string
	router   *mux.Router
	snapshot *SnapshotStore
	log      *logrus.Entry
	http     *http.Server
}

// NewServer builds a debug server listening on addr, serving metrics
// registered against reg and snapshots from store.
func NewServer(addr string, reg *prometheus.Registry, store *SnapshotStore, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		addr:     addr,
		router:   mux.NewRouter(),
		snapshot: store,
		log:      log,
	}
	s.setupRoutes(reg)
	return s
}

func (s *Server) setupRoutes(reg *prometheus.Registry) {
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	debug := s.router.PathPrefix("/debug").Subrouter()
	debug.HandleFunc("/snapshots", s.handleListSnapshots).Methods(http.MethodGet)
	debug.HandleFunc("/snapshots/{name}", s.handleGetSnapshot).Methods(http.MethodGet)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	names, err := s.snapshot.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(names)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	data, err := s.snapshot.Read(path.Join(s.snapshot.root, name))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{Addr: s.addr, Handler: s.router}

	go func() {
		<-ctx.Done()
		s.log.Info("diag server shutting down")
		s.http.Shutdown(context.Background())
	}()

	s.log.WithField("addr", s.addr).Info("diag server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return fmt.Errorf("diag: serve: %w", err)
}
