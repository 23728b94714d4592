// Package respond maps coded service errors onto HTTP responses so the
// controllers keep one consistent contract.
package respond

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"library/util/apperr"
)

var messages = map[apperr.Code]string{
	apperr.NoCopyAvailable:       "no copy available",
	apperr.BorrowingRestricted:   "borrowing restricted",
	apperr.RenewalLimitExceeded:  "renewal limit exceeded",
	apperr.HoldConflict:          "hold conflict",
	apperr.DuplicateHold:         "you already have an active hold on this book",
	apperr.OverpaymentNotAllowed: "payment exceeds outstanding balance",
	apperr.NotActive:             "not in an actionable state",
	apperr.AlreadyReturned:       "already returned",
	apperr.AlreadySettled:        "fine already settled",
	apperr.HasOpenLoans:          "book has open loans",
}

// Error writes the response for a service error and logs unexpected ones.
func Error(c echo.Context, log *slog.Logger, op string, err error) error {
	code := apperr.CodeOf(err)
	switch code {
	case apperr.NotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "not found"})
	case apperr.Forbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	case "":
		log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	default:
		return c.JSON(http.StatusConflict, echo.Map{"message": messages[code], "code": code})
	}
}
