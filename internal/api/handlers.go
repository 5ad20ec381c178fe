package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bher20/slotariff/internal/coordinator"
	"github.com/bher20/slotariff/internal/cron"
	"github.com/bher20/slotariff/internal/export"
	"github.com/bher20/slotariff/internal/prices"
	"github.com/bher20/slotariff/internal/storage"
	"github.com/bher20/slotariff/internal/suppliers"
	"github.com/bher20/slotariff/internal/tariff"
)

// Years the holidays endpoint accepts.
const (
	minHolidayYear = 1583
	maxHolidayYear = 4099
)

func (s *Server) getTariff(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap, err := s.coord.Snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) getTariffAt(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw := r.URL.Query().Get("ts")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing ts query parameter")
		return
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ts must be RFC3339")
		return
	}
	res, err := s.coord.Compute(r.Context(), at)
	if err != nil {
		s.log.Error("compute tariff", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute tariff")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type statusResponse struct {
	coordinator.Status
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap, err := s.coord.Snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: snap.Status, UpdatedAt: snap.UpdatedAt})
}

func (s *Server) getHolidays(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	year, err := strconv.Atoi(ps.ByName("year"))
	if err != nil || year < minHolidayYear || year > maxHolidayYear {
		writeError(w, http.StatusBadRequest, "year must be between 1583 and 4099")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":     year,
		"holidays": tariff.HolidaysForYear(year),
	})
}

func (s *Server) getSchedules(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]tariff.Schedule{
		"weekday_higher":         tariff.WeekdayScheduleHigher,
		"weekday_lower":          tariff.WeekdayScheduleLower,
		"weekend_holiday_higher": tariff.WeekendHolidayScheduleHigher,
		"weekend_holiday_lower":  tariff.WeekendHolidayScheduleLower,
	})
}

func (s *Server) postRefresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap, err := s.coord.Refresh(r.Context())
	if err != nil {
		s.log.Error("manual refresh", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) getBlock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	info, err := s.coord.CurrentBlock(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type costRequest struct {
	ConsumptionKWh *decimal.Decimal `json:"consumption_kwh"`
}

type costResponse struct {
	coordinator.CostQuote
	RoundedCost decimal.Decimal `json:"rounded_cost"`
}

func (s *Server) writeQuote(w http.ResponseWriter, q coordinator.CostQuote, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, costResponse{CostQuote: q, RoundedCost: q.Rounded()})
	case errors.Is(err, coordinator.ErrNegativeConsumption):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, coordinator.ErrNoData), errors.Is(err, coordinator.ErrConsumptionUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("cost quote", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to calculate cost")
	}
}

func (s *Server) postCost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req costRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConsumptionKWh == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"consumption_kwh\": <number>}")
		return
	}
	q, err := s.coord.CalculateCost(r.Context(), *req.ConsumptionKWh)
	s.writeQuote(w, q, err)
}

func (s *Server) getCurrentCost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q, err := s.coord.CurrentCost(r.Context())
	s.writeQuote(w, q, err)
}

func (s *Server) putConsumption(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no storage configured")
		return
	}
	var req costRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConsumptionKWh == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"consumption_kwh\": <number>}")
		return
	}
	if err := s.consumption.Record(r.Context(), *req.ConsumptionKWh); err != nil {
		if errors.Is(err, coordinator.ErrNegativeConsumption) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("record consumption", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to record consumption")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"consumption_kwh": req.ConsumptionKWh.String()})
}

func (s *Server) getPrices(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	table, err := s.coord.Prices(r.Context())
	if err != nil {
		s.log.Error("load prices", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load prices")
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) putPrices(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var u prices.PriceUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if u.Empty() {
		writeError(w, http.StatusBadRequest, "no price fields given")
		return
	}
	table, err := s.coord.UpdatePrices(r.Context(), u)
	if err != nil {
		if errors.Is(err, tariff.ErrInvalidPrice) || errors.Is(err, tariff.ErrMissingBlock) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("update prices", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update prices")
		return
	}
	writeJSON(w, http.StatusOK, table)
}

type suppliersResponse struct {
	Selected  string             `json:"selected"`
	Suppliers []storage.Supplier `json:"suppliers"`
}

func (s *Server) getSuppliers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var list []storage.Supplier
	if s.store != nil {
		var err error
		list, err = s.store.ListSuppliers(r.Context())
		if err != nil {
			s.log.Warn("list suppliers from storage", zap.Error(err))
		}
	}
	if len(list) == 0 {
		list = suppliers.Records()
	}
	writeJSON(w, http.StatusOK, suppliersResponse{Selected: s.supplier, Suppliers: list})
}

type intervalBody struct {
	Value string `json:"value"`
}

func (s *Server) getRefreshInterval(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, intervalBody{})
		return
	}
	v, err := s.store.GetSetting(r.Context(), storage.SettingRefreshInterval)
	if err != nil {
		s.log.Error("get refresh interval", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read setting")
		return
	}
	writeJSON(w, http.StatusOK, intervalBody{Value: v})
}

// putRefreshInterval stores a new schedule (seconds or a cron
// expression) and wakes the refresh loop so it takes effect at once.
func (s *Server) putRefreshInterval(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no storage configured")
		return
	}
	var body intervalBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := cron.Parse(body.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.SetSetting(r.Context(), storage.SettingRefreshInterval, body.Value); err != nil {
		s.log.Error("set refresh interval", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save setting")
		return
	}
	s.coord.RequestRefresh()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.store.GetScheduledJob(r.Context(), ps.ByName("name"))
	if err != nil {
		s.log.Error("get job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) getExport(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	loc := s.coord.Location()
	day := time.Now().In(loc)
	if raw := q.Get("date"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = d
	}
	format := q.Get("format")
	if format == "" {
		format = "xlsx"
	}

	table, err := s.coord.Prices(r.Context())
	if err != nil {
		s.log.Error("load prices", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load prices")
		return
	}
	body, contentType, err := export.Render(format, export.Build(day, table))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=tariff-"+day.Format("2006-01-02")+"."+format)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
