package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/service"
	"github.com/segyhp/movie-rental/pkg/response"
)

type LateFeeHandler struct {
	catalog   *service.CatalogService
	validator *validator.Validate
}

func NewLateFeeHandler(catalog *service.CatalogService) *LateFeeHandler {
	return &LateFeeHandler{
		catalog:   catalog,
		validator: newValidator(),
	}
}

func (h *LateFeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.LateFeeRuleRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	rule, err := h.catalog.CreateLateFee(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, rule)
}

func (h *LateFeeHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.catalog.ListLateFees(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, nonNil(rules))
}

func (h *LateFeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req domain.LateFeeRuleRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	rule, err := h.catalog.UpdateLateFee(r.Context(), id, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, rule)
}

func (h *LateFeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteLateFee(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}
