package inventory

import (
	"strconv"
	"strings"

	"stockledger-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ReceiveRequest struct {
	StockID  string          `json:"stock_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// POST /api/stock/receive
func ReceiveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReceiveRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if strings.TrimSpace(body.StockID) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "stock_id is required")
		}

		entry, err := svc.Receive(c.UserContext(), body.StockID, body.Quantity, auth.Actor(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	}
}

// POST /api/stock/issue
func IssueHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body IssueRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if strings.TrimSpace(body.StockID) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "stock_id is required")
		}
		if strings.TrimSpace(body.Reference) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "reference is required")
		}
		body.Actor = auth.Actor(c)

		entry, err := svc.Issue(c.UserContext(), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	}
}

// POST /api/history/:id/reverse
func ReverseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid ledger id")
		}

		entry, err := svc.Reverse(c.UserContext(), uint(id), auth.Actor(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	}
}
