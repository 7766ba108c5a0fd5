package handler

import (
	"context"
	"iter"
	"net/http"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/service"
	"github.com/segyhp/movie-rental/pkg/response"
)

type RentalHandler struct {
	ledger    *service.Ledger
	validator *validator.Validate
	now       Clock
}

func NewRentalHandler(ledger *service.Ledger, clock Clock) *RentalHandler {
	return &RentalHandler{
		ledger:    ledger,
		validator: newValidator(),
		now:       orSystemClock(clock),
	}
}

// Rent handles POST /rentals
func (h *RentalHandler) Rent(w http.ResponseWriter, r *http.Request) {
	var req domain.RentRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	rental, err := h.ledger.Rent(r.Context(), req.MovieID, req.UserID, h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, rental)
}

// Return handles PUT /rentals/{id}/return
func (h *RentalHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rental, err := h.ledger.ReturnRental(r.Context(), id, h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, rental)
}

func (h *RentalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	view, err := h.ledger.GetRental(r.Context(), id, h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, view)
}

// Price handles GET /rentals/{id}/price
func (h *RentalHandler) Price(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	quote, err := h.ledger.Quote(r.Context(), id, h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, quote)
}

func (h *RentalHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.ledger.ListRentals)
}

func (h *RentalHandler) Active(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.ledger.ListActiveRentals)
}

func (h *RentalHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.ledger.ListOverdue)
}

type listFunc func(ctx context.Context, now time.Time) (iter.Seq[domain.RentalView], error)

func (h *RentalHandler) list(w http.ResponseWriter, r *http.Request, fn listFunc) {
	views, err := fn(r.Context(), h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, nonNil(slices.Collect(views)))
}
