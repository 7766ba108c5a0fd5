package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/service"
	"github.com/segyhp/movie-rental/pkg/response"
)

type MovieHandler struct {
	catalog   *service.CatalogService
	validator *validator.Validate
}

func NewMovieHandler(catalog *service.CatalogService) *MovieHandler {
	return &MovieHandler{
		catalog:   catalog,
		validator: newValidator(),
	}
}

func (h *MovieHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMovieRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	movie, err := h.catalog.CreateMovie(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, movie)
}

func (h *MovieHandler) List(w http.ResponseWriter, r *http.Request) {
	movies, err := h.catalog.ListMovies(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, nonNil(movies))
}

func (h *MovieHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	movie, err := h.catalog.GetMovie(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, movie)
}

func (h *MovieHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateMovieRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	movie, err := h.catalog.UpdateMovie(r.Context(), id, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, movie)
}

func (h *MovieHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteMovie(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// nonNil keeps empty listings encoded as [] rather than omitted.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
