package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticketboss/internal/model"
	"github.com/iliyamo/ticketboss/internal/service"
)

// ReservationService is the subset of service.ReservationService used by
// the HTTP layer.
type ReservationService interface {
	Book(ctx context.Context, req service.BookRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, reservationID string) error
	Summary(ctx context.Context, eventID string) (*model.EventSummary, error)
	GetReservation(ctx context.Context, reservationID string) (*model.Reservation, error)
}

// ReservationHandler serves the /api/reservations endpoints for a single
// event.  Requests are validated here; the protocol itself runs in the
// service, whose typed outcomes are mapped to status codes by
// respondError.
type ReservationHandler struct {
	svc       ReservationService
	validator *RequestValidator
	eventID   string
	logger    *zap.Logger
}

// NewReservationHandler constructs a handler bound to eventID.
func NewReservationHandler(svc ReservationService, v *RequestValidator, eventID string, logger *zap.Logger) *ReservationHandler {
	if svc == nil || v == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationHandler{svc: svc, validator: v, eventID: eventID, logger: logger}
}

type createReservationRequest struct {
	PartnerID string `json:"partnerId" validate:"required,min=1"`
	Seats     *int   `json:"seats" validate:"required,min=1,max=10"`
}

type reservationResponse struct {
	ReservationID string `json:"reservationId"`
	Seats         int    `json:"seats"`
	Status        string `json:"status"`
}

type reservationDetailResponse struct {
	ReservationID string `json:"reservationId"`
	EventID       string `json:"eventId"`
	PartnerID     string `json:"partnerId"`
	Seats         int    `json:"seats"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

// CreateReservation handles POST /api/reservations.  Body:
// {"partnerId": "...", "seats": 1..10}.  Returns 201 with the new
// reservation, 409 when the seats are not available or the event changed
// under the request, and 503 when the database is saturated.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	var body createReservationRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validator.Validate(&body); err != nil {
		return err
	}

	res, err := h.svc.Book(c.Request().Context(), service.BookRequest{
		EventID:   h.eventID,
		PartnerID: body.PartnerID,
		Seats:     *body.Seats,
	})
	if err != nil {
		return h.respondError(c, err, "Event not found")
	}
	return c.JSON(http.StatusCreated, reservationResponse{
		ReservationID: res.ID,
		Seats:         res.Seats,
		Status:        string(res.Status),
	})
}

// CancelReservation handles DELETE /api/reservations/:reservationId.
// Returns 204 on success and 404 when the reservation is unknown or was
// already cancelled.
func (h *ReservationHandler) CancelReservation(c echo.Context) error {
	id := c.Param("reservationId")
	if err := h.validator.Var("reservationId", id, "required,uuid"); err != nil {
		return err
	}
	if err := h.svc.Cancel(c.Request().Context(), id); err != nil {
		return h.respondError(c, err, "Reservation not found or already cancelled")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetSummary handles GET /api/reservations and returns the event's
// capacity, availability, confirmed reservation count and version.
func (h *ReservationHandler) GetSummary(c echo.Context) error {
	sum, err := h.svc.Summary(c.Request().Context(), h.eventID)
	if err != nil {
		return h.respondError(c, err, "Event not found")
	}
	return c.JSON(http.StatusOK, sum)
}

// GetReservation handles GET /api/reservations/:reservationId.
func (h *ReservationHandler) GetReservation(c echo.Context) error {
	id := c.Param("reservationId")
	if err := h.validator.Var("reservationId", id, "required,uuid"); err != nil {
		return err
	}
	res, err := h.svc.GetReservation(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err, "Reservation not found")
	}
	return c.JSON(http.StatusOK, reservationDetailResponse{
		ReservationID: res.ID,
		EventID:       res.EventID,
		PartnerID:     res.PartnerID,
		Seats:         res.Seats,
		Status:        string(res.Status),
		CreatedAt:     res.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     res.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// respondError writes the response for a known protocol outcome.  Any
// other error is returned to echo so the global error handler logs it
// and answers 500.
func (h *ReservationHandler) respondError(c echo.Context, err error, notFound string) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFound})
	case errors.Is(err, service.ErrInsufficientCapacity):
		return c.JSON(http.StatusConflict, echo.Map{"error": "Not enough seats left"})
	case errors.Is(err, service.ErrWriteConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "Conflict: Event data was modified. Please try again."})
	case errors.Is(err, service.ErrServiceBusy):
		h.logger.Warn("service busy", zap.String("route", c.Path()), zap.Error(err))
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Server is too busy. Please try again in a moment."})
	default:
		return err
	}
}
