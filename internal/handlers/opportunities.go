package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"crm/internal/rules"
	"crm/models"

	"github.com/go-chi/chi/v5"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams парсит limit и offset из query, с дефолтами и ограничениями
func parsePaginationParams(r *http.Request) PaginationParams {
	params := PaginationParams{Limit: 100}

	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 500 {
		params.Limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		params.Offset = o
	}
	return params
}

func paginate[T any](items []T, p PaginationParams) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := min(p.Offset+p.Limit, len(items))
	return items[p.Offset:end]
}

// CreateOpportunityHandler обрабатывает POST /api/opportunities
func (h *Handler) CreateOpportunityHandler(w http.ResponseWriter, r *http.Request) {
	var in models.OpportunityInput
	if err := h.decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResult(w, h.Opportunities.Create(r.Context(), in), http.StatusCreated)
}

// ListOpportunitiesHandler возвращает сделки; фильтры active и organization_id
func (h *Handler) ListOpportunitiesHandler(w http.ResponseWriter, r *http.Request) {
	opps, ok := h.visibleOpportunities(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, paginate(opps, parsePaginationParams(r)))
}

// PipelineMetricsHandler считает сводку воронки по тем же фильтрам, что и список
func (h *Handler) PipelineMetricsHandler(w http.ResponseWriter, r *http.Request) {
	opps, ok := h.visibleOpportunities(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Opportunities.CalculatePipelineMetrics(opps))
}

func (h *Handler) visibleOpportunities(w http.ResponseWriter, r *http.Request) ([]models.Opportunity, bool) {
	q := r.URL.Query()
	active := false
	if v := q.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid active parameter")
			return nil, false
		}
		active = b
	}

	res := h.Opportunities.List(r.Context())
	switch orgID := strings.TrimSpace(q.Get("organization_id")); {
	case orgID != "":
		res = h.Opportunities.GetByOrganization(r.Context(), orgID)
	case active:
		res = h.Opportunities.GetActiveOpportunities(r.Context())
	}
	if res.IsFailure() {
		writeFailure(w, res.Message())
		return nil, false
	}

	opps := res.Value()
	if active {
		filtered := make([]models.Opportunity, 0, len(opps))
		for _, o := range opps {
			if rules.IsActiveStage(o.Stage) {
				filtered = append(filtered, o)
			}
		}
		opps = filtered
	}
	return opps, true
}

func (h *Handler) GetOpportunityHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "opportunityId")
	writeResult(w, h.Opportunities.Get(r.Context(), id), http.StatusOK)
}

// UpdateOpportunityHandler применяет частичные изменения (PATCH)
func (h *Handler) UpdateOpportunityHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "opportunityId")

	var patch models.OpportunityInput
	if err := h.decodeBody(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResult(w, h.Opportunities.Update(r.Context(), id, patch), http.StatusOK)
}

// UpdateStageHandler обрабатывает PUT /api/opportunities/{id}/stage?stage=...&username=...
func (h *Handler) UpdateStageHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "opportunityId")
	stage := r.URL.Query().Get("stage")
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if stage == "" {
		writeError(w, http.StatusBadRequest, "Missing stage parameter")
		return
	}
	writeResult(w, h.Opportunities.UpdateStage(r.Context(), id, models.Stage(stage), username), http.StatusOK)
}

func (h *Handler) DeleteOpportunityHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "opportunityId")
	writeEmpty(w, h.Opportunities.SoftDelete(r.Context(), id))
}

// ValidateTransitionHandler проверяет переход from -> to без изменения данных
func (h *Handler) ValidateTransitionHandler(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "Missing from or to parameter")
		return
	}
	writeJSON(w, http.StatusOK, h.Opportunities.ValidateStageTransition(models.Stage(from), models.Stage(to)))
}

type nameResponse struct {
	Name string `json:"name"`
}

func (h *Handler) GenerateNameHandler(w http.ResponseWriter, r *http.Request) {
	var p rules.NameParams
	if err := h.decodeBody(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(p.OrganizationName) == "" {
		writeError(w, http.StatusBadRequest, "organizationName is required")
		return
	}
	if p.ExistingOpportunityCount < 0 {
		writeError(w, http.StatusBadRequest, "existingOpportunityCount must not be negative")
		return
	}
	writeJSON(w, http.StatusOK, nameResponse{Name: h.Opportunities.GenerateName(p)})
}

// EventsHandler отдает накопленные доменные события
func (h *Handler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Opportunities.Events())
}

func (h *Handler) ClearEventsHandler(w http.ResponseWriter, r *http.Request) {
	h.Opportunities.ClearEvents()
	w.WriteHeader(http.StatusNoContent)
}
