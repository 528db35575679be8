package inventory

import (
	"stockledger-backend/internal/auth"
	"stockledger-backend/internal/models"
	"stockledger-backend/internal/spreadsheet"

	"github.com/gofiber/fiber/v2"
)

type PreviewRequest struct {
	Rows []models.ImportRow `json:"rows"`
}

type CommitRequest struct {
	Previews []PreviewEntry `json:"previews"`
}

// POST /api/imports/preview
func PreviewImportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PreviewRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		previews, err := svc.Preview(c.UserContext(), body.Rows)
		if err != nil {
			return err
		}
		return c.JSON(previews)
	}
}

// POST /api/imports/upload (multipart, field "file", .xlsx or .csv)
func UploadImportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not open file")
		}
		defer file.Close()

		sheet, err := spreadsheet.Parse(file, fileHeader.Filename)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		previews, err := svc.Preview(c.UserContext(), sheet.Rows)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"previews": previews,
			"skipped":  sheet.Skipped,
		})
	}
}

// POST /api/imports/commit
func CommitImportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CommitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if len(body.Previews) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "nothing to import")
		}

		res, err := svc.Commit(c.UserContext(), body.Previews, auth.Actor(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GET /api/imports/template
func ImportTemplateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="Inventory_Import_Template.xlsx"`)
		return spreadsheet.WriteTemplate(c.Response().BodyWriter())
	}
}

// POST /api/stock/entries
func AddStockEntryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var row models.ImportRow
		if err := c.BodyParser(&row); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if row.PartName == "" || row.Project == "" {
			return fiber.NewError(fiber.StatusBadRequest, "project and part_name are required")
		}

		res, err := svc.AddStockEntry(c.UserContext(), row, auth.Actor(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}
