package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"crm/internal/domain"
	"crm/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMaxBodyBytes = 1048576

var validate = validator.New()

// Handler связывает HTTP с сервисами сделок и организаций
type Handler struct {
	Opportunities OpportunityService
	Organizations OrganizationService
	MaxBodyBytes  int64
	Logger        *slog.Logger
}

// NewHandler создает новый Handler
func NewHandler(opps OpportunityService, orgs OrganizationService) *Handler {
	return &Handler{
		Opportunities: opps,
		Organizations: orgs,
		MaxBodyBytes:  defaultMaxBodyBytes,
		Logger:        slog.Default(),
	}
}

// NewRouter собирает маршруты API; gatherer публикуется на /metrics, если задан
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(h.Logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)

		// сделки
		r.Post("/opportunities", h.CreateOpportunityHandler)
		r.Get("/opportunities", h.ListOpportunitiesHandler)
		r.Get("/opportunities/metrics", h.PipelineMetricsHandler)
		r.Get("/opportunities/transitions", h.ValidateTransitionHandler)
		r.Post("/opportunities/name", h.GenerateNameHandler)
		r.Get("/opportunities/{opportunityId}", h.GetOpportunityHandler)
		r.Patch("/opportunities/{opportunityId}", h.UpdateOpportunityHandler)
		r.Put("/opportunities/{opportunityId}/stage", h.UpdateStageHandler)
		r.Delete("/opportunities/{opportunityId}", h.DeleteOpportunityHandler)

		r.Get("/events", h.EventsHandler)
		r.Delete("/events", h.ClearEventsHandler)

		// организации
		r.Post("/organizations", h.CreateOrganizationHandler)
		r.Get("/organizations", h.ListOrganizationsHandler)
		r.Get("/organizations/segmentation", h.SegmentationHandler)
		r.Get("/organizations/{organizationId}", h.GetOrganizationHandler)
		r.Patch("/organizations/{organizationId}", h.UpdateOrganizationHandler)
		r.Delete("/organizations/{organizationId}", h.DeleteOrganizationHandler)
		r.Get("/organizations/{organizationId}/validation", h.ValidateOrganizationHandler)
		r.Get("/organizations/{organizationId}/score", h.RelationshipScoreHandler)
		r.Get("/organizations/{organizationId}/performance", h.PerformanceHandler)
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// PingHandler отвечает "ok" для проверки сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

var errEmptyBody = errors.New("Request body is empty")

// decodeBody читает JSON с ограничением размера тела
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.New("Failed to read request body")
	}
	if len(body) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("Invalid JSON format")
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure: отсутствующая запись - 404, остальные отказы - 422
func writeFailure(w http.ResponseWriter, msg string) {
	switch msg {
	case services.ErrOpportunityNotFound, services.ErrOrganizationNotFound:
		writeError(w, http.StatusNotFound, msg)
	default:
		writeError(w, http.StatusUnprocessableEntity, msg)
	}
}

func writeResult[T any](w http.ResponseWriter, res domain.Result[T], status int) {
	if res.IsFailure() {
		writeFailure(w, res.Message())
		return
	}
	writeJSON(w, status, res.Value())
}

// writeEmpty отвечает 204 на успешное удаление
func writeEmpty(w http.ResponseWriter, res domain.Result[struct{}]) {
	if res.IsFailure() {
		writeFailure(w, res.Message())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
