package point

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes point HTTP endpoints.
type Handler struct {
	ledger *Ledger
}

// NewHandler builds a point HTTP handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

type amountRequest struct {
	Amount *int64 `json:"amount"`
}

type balanceResponse struct {
	ID           int64 `json:"id"`
	Point        int64 `json:"point"`
	UpdateMillis int64 `json:"updateMillis"`
}

type historyResponse struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"userId"`
	Amount       int64  `json:"amount"`
	Type         string `json:"type"`
	UpdateMillis int64  `json:"updateMillis"`
}

// Balance returns the user's current points.
func (h *Handler) Balance(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	bal, err := h.ledger.Balance(c.UserContext(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toBalanceResponse(bal))
}

// History returns the user's charge/use records.
func (h *Handler) History(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	records, err := h.ledger.History(c.UserContext(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]historyResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, historyResponse{
			ID:           rec.ID,
			UserID:       rec.UserID,
			Amount:       rec.Amount,
			Type:         string(rec.Kind),
			UpdateMillis: rec.CreatedAtMillis,
		})
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Charge credits points to the user.
func (h *Handler) Charge(c *fiber.Ctx) error {
	userID, amount, err := mutationParams(c)
	if err != nil {
		return err
	}
	bal, err := h.ledger.Credit(c.UserContext(), userID, amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toBalanceResponse(bal))
}

// Use debits points from the user.
func (h *Handler) Use(c *fiber.Ctx) error {
	userID, amount, err := mutationParams(c)
	if err != nil {
		return err
	}
	bal, err := h.ledger.Debit(c.UserContext(), userID, amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toBalanceResponse(bal))
}

func userIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, fmt.Sprintf("invalid user id %q", c.Params("id")))
	}
	return id, nil
}

func mutationParams(c *fiber.Ctx) (int64, int64, error) {
	userID, err := userIDParam(c)
	if err != nil {
		return 0, 0, err
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return 0, 0, fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Amount == nil {
		return 0, 0, fiber.NewError(http.StatusBadRequest, "amount is required")
	}
	return userID, *req.Amount, nil
}

func toBalanceResponse(bal Balance) balanceResponse {
	return balanceResponse{ID: bal.UserID, Point: bal.Amount, UpdateMillis: bal.UpdatedAtMillis}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrBalanceCeilingExceeded), errors.Is(err, ErrInsufficientBalance):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrStaleBalance):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
