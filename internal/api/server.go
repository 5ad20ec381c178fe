// Package api exposes the tariff coordinator over HTTP.
package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bher20/slotariff/internal/api/swagger"
	"github.com/bher20/slotariff/internal/auth"
	"github.com/bher20/slotariff/internal/coordinator"
	"github.com/bher20/slotariff/internal/events"
	"github.com/bher20/slotariff/internal/storage"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	coord       *coordinator.Coordinator
	store       storage.Storage
	auth        *auth.Service
	bus         *events.Bus
	consumption coordinator.StoredConsumption
	supplier    string
	log         *zap.Logger
}

type Config struct {
	Coordinator *coordinator.Coordinator
	Store       storage.Storage
	Auth        *auth.Service
	Bus         *events.Bus
	// Supplier is the configured supplier key, reported by /suppliers.
	Supplier string
	Logger   *zap.Logger
}

func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		coord:       cfg.Coordinator,
		store:       cfg.Store,
		auth:        cfg.Auth,
		bus:         cfg.Bus,
		consumption: coordinator.StoredConsumption{Store: cfg.Store},
		supplier:    cfg.Supplier,
		log:         log.Named("api"),
	}
}

// guard wraps h with the permission check for obj/act.
func (s *Server) guard(obj, act string, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		s.auth.RequirePermission(obj, act, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h(w, r, ps)
		})).ServeHTTP(w, r)
	}
}

// Handler builds the router with every route, wrapped in authentication.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()

	route := func(method, path, obj, act string, h httprouter.Handle) {
		router.Handle(method, path, instrument(path, s.guard(obj, act, h)))
	}

	const read, write = auth.ActRead, auth.ActWrite
	route(http.MethodGet, "/api/v1/tariff", auth.ObjTariff, read, s.getTariff)
	route(http.MethodGet, "/api/v1/tariff/at", auth.ObjTariff, read, s.getTariffAt)
	route(http.MethodGet, "/api/v1/status", auth.ObjTariff, read, s.getStatus)
	route(http.MethodGet, "/api/v1/holidays/:year", auth.ObjTariff, read, s.getHolidays)
	route(http.MethodGet, "/api/v1/schedules", auth.ObjTariff, read, s.getSchedules)
	route(http.MethodPost, "/api/v1/refresh", auth.ObjTariff, write, s.postRefresh)
	route(http.MethodGet, "/api/v1/block", auth.ObjTariff, read, s.getBlock)
	route(http.MethodPost, "/api/v1/cost", auth.ObjTariff, read, s.postCost)
	route(http.MethodGet, "/api/v1/cost/current", auth.ObjTariff, read, s.getCurrentCost)
	route(http.MethodPut, "/api/v1/consumption", auth.ObjConsumption, write, s.putConsumption)
	route(http.MethodGet, "/api/v1/prices", auth.ObjPrices, read, s.getPrices)
	route(http.MethodPut, "/api/v1/prices", auth.ObjPrices, write, s.putPrices)
	route(http.MethodGet, "/api/v1/suppliers", auth.ObjPrices, read, s.getSuppliers)
	route(http.MethodGet, "/api/v1/settings/refresh-interval", auth.ObjSettings, read, s.getRefreshInterval)
	route(http.MethodPut, "/api/v1/settings/refresh-interval", auth.ObjSettings, write, s.putRefreshInterval)
	route(http.MethodGet, "/api/v1/jobs/:name", auth.ObjSettings, read, s.getJob)
	route(http.MethodGet, "/api/v1/export", auth.ObjTariff, read, s.getExport)
	// Not instrumented: the recorder would hide http.Hijacker.
	router.GET("/api/v1/stream", s.guard(auth.ObjTariff, read, s.stream))

	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	router.HandlerFunc(http.MethodGet, "/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandlerFunc(http.MethodGet, "/readyz", s.readyz)
	router.HandlerFunc(http.MethodGet, "/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})
	if docs, err := swagger.Handler("/docs"); err != nil {
		s.log.Error("api docs unavailable", zap.Error(err))
	} else {
		router.Handler(http.MethodGet, "/docs/*path", docs)
	}

	return s.auth.Middleware(router)
}

// readyz reports ready once storage answers and a snapshot exists.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.log.Warn("readyz: storage ping failed", zap.Error(err))
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
	}
	if _, err := s.coord.Snapshot(); err != nil {
		http.Error(w, "no tariff data yet", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
