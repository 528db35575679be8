package inventory

import (
	"fmt"
	"time"

	"stockledger-backend/internal/spreadsheet"

	"github.com/gofiber/fiber/v2"
)

// GET /api/history?search=&page=1&page_size=20
func ListHistoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := svc.HistoryPage(c.UserContext(),
			c.Query("search"),
			c.QueryInt("page", 1),
			c.QueryInt("page_size", defaultPageSize))
		if err != nil {
			return err
		}
		return c.JSON(page)
	}
}

func parseDay(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s must be YYYY-MM-DD", key))
	}
	return &t, nil
}

// GET /api/history/export?date_from=2024-01-01&date_to=2024-01-31&kind=ISSUE&format=xlsx
func ExportHistoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := parseDay(c, "date_from")
		if err != nil {
			return err
		}
		to, err := parseDay(c, "date_to")
		if err != nil {
			return err
		}

		entries, err := svc.HistoryExport(c.UserContext(), ExportFilter{
			From: from,
			To:   to,
			Kind: c.Query("kind"),
		})
		if err != nil {
			return err
		}

		switch c.Query("format", "json") {
		case "json":
			return c.JSON(entries)
		case "xlsx":
			c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			c.Set(fiber.HeaderContentDisposition, `attachment; filename="stock_history.xlsx"`)
			return spreadsheet.WriteHistory(c.Response().BodyWriter(), entries)
		}
		return fiber.NewError(fiber.StatusBadRequest, "format must be json or xlsx")
	}
}
