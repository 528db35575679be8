package inventory

import (
	"errors"

	"stockledger-backend/internal/ledger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StatusOf maps a ledger error code to its HTTP status.
func StatusOf(code ledger.Code) int {
	switch code {
	case ledger.CodeInvalidQuantity:
		return fiber.StatusBadRequest
	case ledger.CodeNotFound:
		return fiber.StatusNotFound
	case ledger.CodeInsufficientStock, ledger.CodeAlreadyReversed, ledger.CodeConflict:
		return fiber.StatusConflict
	case ledger.CodeStoreUnavailable:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders ledger errors as {"error", "code"} with their mapped
// status, fiber errors as {"error"}, and anything else as a 500.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var le *ledger.Error
		if errors.As(err, &le) {
			status := StatusOf(le.Code)
			body := fiber.Map{
				"error": err.Error(),
				"code":  le.Code,
			}
			switch le.Code {
			case ledger.CodeConflict:
				body["retryable"] = true
			case ledger.CodeInsufficientStock:
				body["requested"] = le.Requested
				body["available"] = le.Available
			case ledger.CodeStoreUnavailable:
				log.Error("store unavailable", zap.String("path", c.Path()), zap.Error(err))
				body["error"] = "store unavailable"
			}
			return c.Status(status).JSON(body)
		}

		if errors.Is(err, ErrInvalidFilter) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		log.Error("unexpected error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unexpected server error",
		})
	}
}
