package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/service"
	"github.com/segyhp/movie-rental/pkg/response"
)

type UserHandler struct {
	catalog   *service.CatalogService
	validator *validator.Validate
}

func NewUserHandler(catalog *service.CatalogService) *UserHandler {
	return &UserHandler{
		catalog:   catalog,
		validator: newValidator(),
	}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	user, err := h.catalog.CreateUser(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.catalog.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, nonNil(users))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := h.catalog.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateUserRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	user, err := h.catalog.UpdateUser(r.Context(), id, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}
