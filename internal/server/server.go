// Package server exposes the operator-facing command surface over HTTP:
// counter registration and queries, profile operations and push worker
// lifecycle. Handlers translate the core's error values into status codes;
// nothing below this layer renders errors itself.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"github.com/vmelnikov/statadmin/internal/config"
	"github.com/vmelnikov/statadmin/internal/errs"
	"github.com/vmelnikov/statadmin/internal/push"
	"github.com/vmelnikov/statadmin/internal/registry"
	"github.com/vmelnikov/statadmin/internal/server/middleware"
	"github.com/vmelnikov/statadmin/model"
)

type Server struct {
	Registry *registry.Registry
	Push     *push.Manager
	Config   *config.ServerConfig
}

func NewServer(reg *registry.Registry, pushMgr *push.Manager, config *config.ServerConfig) *Server {
	return &Server{
		Registry: reg,
		Push:     pushMgr,
		Config:   config,
	}
}

// Router builds the admin surface.
func (srv *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(chiMiddleware.StripSlashes)
	router.Use(middleware.LogMiddleware(srv.Config.Logger))
	router.Use(middleware.TrustedCIDR(srv.Config.TrustedSubnet))
	router.Use(middleware.VerifyHashMiddleware(srv.Config))
	router.Use(middleware.DecompressMiddleware)
	router.Use(middleware.CompressMiddleware)

	router.Post("/counters/register", srv.RegisterHandler)
	router.Delete("/counters/{name}", srv.UnregisterHandler)
	router.Get("/counters", srv.QueryHandler)

	router.Post("/profiles/reset", srv.ResetProfileHandler)
	router.Get("/profiles/loaded", srv.LoadedProfileHandler)
	router.Post("/profiles/{name}/save", srv.SaveProfileHandler)
	router.Post("/profiles/{name}/load", srv.LoadProfileHandler)
	router.Delete("/profiles/{name}", srv.DeleteProfileHandler)

	router.Post("/push/setup", srv.SetupHandler)
	router.Post("/push/setdown", srv.SetdownHandler)
	router.Get("/push/find", srv.FindPushStatsHandler)

	return router
}

// Run serves the admin surface until the context is done, then shuts down
// gracefully.
func (srv *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:    srv.Config.Addr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// statusFor maps the core's error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument),
		errors.Is(err, errs.ErrUnsupportedProtocol):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound),
		errors.Is(err, errs.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrCounterUnregistered):
		return http.StatusGone
	case errors.Is(err, errs.ErrTypeMismatch),
		errors.Is(err, errs.ErrDuplicateInstance):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (srv *Server) reportError(w http.ResponseWriter, err error) {
	srv.Config.Logger.Infof("request refused: %v", err)
	http.Error(w, err.Error(), statusFor(err))
}

func writeJSON(w http.ResponseWriter, logger interface{ Errorf(string, ...any) }, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("failed to write response JSON: %v", err)
	}
}

type registerRequest struct {
	Name    string            `json:"name"` // dotted counter name
	Type    string            `json:"type"`
	Options model.Options     `json:"options,omitempty"`
	Aliases map[string]string `json:"aliases,omitempty"`
}

func (srv *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Type == "" {
		http.Error(w, "name and type are required", http.StatusBadRequest)
		return
	}

	effective, err := srv.Registry.Register(r.Context(), model.SplitName(req.Name), req.Type, req.Options, req.Aliases)
	if err != nil && !errors.Is(err, errs.ErrCounterUnregistered) {
		srv.reportError(w, err)
		return
	}
	if errors.Is(err, errs.ErrCounterUnregistered) {
		// refusal carries empty options, not a fault
		w.WriteHeader(http.StatusGone)
	}
	writeJSON(w, srv.Config.Logger, effective)
}

func (srv *Server) UnregisterHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if err := srv.Registry.Unregister(r.Context(), model.SplitName(name)); err != nil {
		srv.reportError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (srv *Server) QueryHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := registry.Filter{
		Pattern: model.SplitName(q.Get("pattern")),
		Status:  model.Status(q.Get("status")),
		Type:    q.Get("type"),
	}
	if dps := q.Get("datapoints"); dps != "" {
		filter.Datapoints = strings.Split(dps, ",")
	}
	if filter.Status == "" {
		filter.Status = registry.StatusWildcard
	}

	matches, err := srv.Registry.Query(r.Context(), filter)
	if err != nil {
		srv.reportError(w, err)
		return
	}
	writeJSON(w, srv.Config.Logger, matches)
}

func (srv *Server) SaveProfileHandler(w http.ResponseWriter, r *http.Request) {
	if err := srv.Registry.SaveProfile(r.Context(), chi.URLParam(r, "name")); err != nil {
		srv.reportError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (srv *Server) LoadProfileHandler(w http.ResponseWriter, r *http.Request) {
	if err := srv.Registry.LoadProfile(r.Context(), chi.URLParam(r, "name")); err != nil {
		srv.reportError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (srv *Server) DeleteProfileHandler(w http.ResponseWriter, r *http.Request) {
	if err := srv.Registry.DeleteProfile(r.Context(), chi.URLParam(r, "name")); err != nil {
		srv.reportError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (srv *Server) ResetProfileHandler(w http.ResponseWriter, r *http.Request) {
	if err := srv.Registry.ResetProfile(r.Context()); err != nil {
		srv.reportError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (srv *Server) LoadedProfileHandler(w http.ResponseWriter, r *http.Request) {
	loaded, err := srv.Registry.LoadedProfile(r.Context())
	if err != nil {
		srv.reportError(w, err)
		return
	}
	writeJSON(w, srv.Config.Logger, map[string]string{"loaded": loaded})
}

type setupResponse struct {
	Report string     `json:"report"`
	Record model.Push `json:"record"`
}

func (srv *Server) SetupHandler(w http.ResponseWriter, r *http.Request) {
	args, ok := srv.readArgs(w, r)
	if !ok {
		return
	}

	record, err := srv.Push.Setup(r.Context(), args)
	if errors.Is(err, errs.ErrAlreadyRunning) {
		// idempotent setup: the second call is a report, not a failure
		writeJSON(w, srv.Config.Logger, setupResponse{Report: "already running", Record: record})
		return
	}
	if err != nil {
		srv.reportError(w, err)
		return
	}
	writeJSON(w, srv.Config.Logger, setupResponse{Report: "started", Record: record})
}

func (srv *Server) SetdownHandler(w http.ResponseWriter, r *http.Request) {
	args, ok := srv.readArgs(w, r)
	if !ok {
		return
	}

	stopped, err := srv.Push.Setdown(r.Context(), args)
	if err != nil {
		srv.reportError(w, err)
		return
	}
	writeJSON(w, srv.Config.Logger, map[string]int{"stopped": stopped})
}

func (srv *Server) FindPushStatsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var nodes []string
	if ns := q.Get("nodes"); ns != "" {
		nodes = strings.Split(ns, ",")
	}

	records, err := srv.Push.FindPushStats(r.Context(), nodes, q.Get("args"))
	if err != nil {
		srv.reportError(w, err)
		return
	}
	if records == nil {
		records = []model.Push{}
	}
	writeJSON(w, srv.Config.Logger, records)
}

// readArgs extracts the push argument blob from either a text body or a
// JSON {"args": "..."} body.
func (srv *Server) readArgs(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return "", false
	}

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Args string `json:"args"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return "", false
		}
		return req.Args, true
	}
	return strings.TrimSpace(string(body)), true
}
