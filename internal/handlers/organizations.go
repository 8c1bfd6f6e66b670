package handlers

import (
	"net/http"
	"strconv"
	"time"

	"crm/internal/services"
	"crm/models"

	"github.com/go-chi/chi/v5"
)

// CreateOrganizationHandler обрабатывает POST /api/organizations
func (h *Handler) CreateOrganizationHandler(w http.ResponseWriter, r *http.Request) {
	var in models.OrganizationInput
	if err := h.decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResult(w, h.Organizations.Create(r.Context(), in), http.StatusCreated)
}

func (h *Handler) ListOrganizationsHandler(w http.ResponseWriter, r *http.Request) {
	res := h.Organizations.List(r.Context())
	if res.IsFailure() {
		writeFailure(w, res.Message())
		return
	}
	writeJSON(w, http.StatusOK, paginate(res.Value(), parsePaginationParams(r)))
}

func (h *Handler) GetOrganizationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "organizationId")
	writeResult(w, h.Organizations.Get(r.Context(), id), http.StatusOK)
}

func (h *Handler) UpdateOrganizationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "organizationId")

	var patch models.OrganizationInput
	if err := h.decodeBody(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResult(w, h.Organizations.Update(r.Context(), id, patch), http.StatusOK)
}

func (h *Handler) DeleteOrganizationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "organizationId")
	writeEmpty(w, h.Organizations.SoftDelete(r.Context(), id))
}

// ValidateOrganizationHandler - мягкая проверка, всегда 200 для существующей организации
func (h *Handler) ValidateOrganizationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "organizationId")
	writeResult(w, h.Organizations.ValidateBusiness(r.Context(), id), http.StatusOK)
}

// RelationshipScoreHandler: ?contacts=&interactions=&last_interaction=RFC3339
func (h *Handler) RelationshipScoreHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "organizationId")
	activity, err := parseActivity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResult(w, h.Organizations.RelationshipScore(r.Context(), id, activity), http.StatusOK)
}

func (h *Handler) PerformanceHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "organizationId")
	activity, err := parseActivity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResult(w, h.Organizations.Performance(r.Context(), id, activity), http.StatusOK)
}

func (h *Handler) SegmentationHandler(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.Organizations.Segmentation(r.Context()), http.StatusOK)
}

type queryError string

func (e queryError) Error() string { return string(e) }

// parseActivity читает счетчики активности из query; пустые значения - ноль
func parseActivity(r *http.Request) (services.Activity, error) {
	var a services.Activity
	q := r.URL.Query()

	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"contacts", &a.ContactCount},
		{"interactions", &a.InteractionCount},
	} {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return a, queryError("Invalid " + f.name + " parameter")
		}
		*f.dst = n
	}
	if v := q.Get("last_interaction"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return a, queryError("Invalid last_interaction parameter, expected RFC3339")
		}
		a.LastInteractionAt = &t
	}
	if err := validate.Struct(a); err != nil {
		return a, queryError("Activity counters must not be negative")
	}
	return a, nil
}
