package inventory

import (
	"stockledger-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// GET /api/inventory?search=bolt&page=1&page_size=20
func ListInventoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := svc.InventoryPage(c.UserContext(),
			c.Query("search"),
			c.QueryInt("page", 1),
			c.QueryInt("page_size", defaultPageSize))
		if err != nil {
			return err
		}
		return c.JSON(page)
	}
}

// GET /api/stats
func StatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := svc.Stats(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(st)
	}
}

// GET /api/stock/:id/available
func AvailableHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stockID := c.Params("id")
		qty, err := svc.StockAvailable(c.UserContext(), stockID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"stock_id":           stockID,
			"available_quantity": qty,
		})
	}
}

type SetThresholdRequest struct {
	MinQuantity decimal.Decimal `json:"min_quantity"`
}

// PUT /api/stock/:id/threshold
func SetThresholdHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SetThresholdRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		stockID := c.Params("id")
		if err := svc.SetThreshold(c.UserContext(), stockID, body.MinQuantity, auth.Actor(c)); err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"stock_id":     stockID,
			"min_quantity": body.MinQuantity,
		})
	}
}
