package inventory

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the stock API on an authenticated router.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/inventory", ListInventoryHandler(svc))
	r.Get("/stats", StatsHandler(svc))

	r.Post("/stock/receive", ReceiveHandler(svc))
	r.Post("/stock/issue", IssueHandler(svc))
	r.Post("/stock/entries", AddStockEntryHandler(svc))
	r.Get("/stock/:id/available", AvailableHandler(svc))
	r.Put("/stock/:id/threshold", SetThresholdHandler(svc))

	r.Post("/imports/preview", PreviewImportHandler(svc))
	r.Post("/imports/upload", UploadImportHandler(svc))
	r.Post("/imports/commit", CommitImportHandler(svc))
	r.Get("/imports/template", ImportTemplateHandler())

	r.Get("/history", ListHistoryHandler(svc))
	r.Get("/history/export", ExportHistoryHandler(svc))
	r.Post("/history/:id/reverse", ReverseHandler(svc))
}
