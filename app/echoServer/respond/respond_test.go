package respond_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"library/app/echoServer/respond"
	"library/util/apperr"
)

func do(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, respond.Error(c, log, "op", err))
	return rec
}

func TestError_StatusMapping(t *testing.T) {
	require.Equal(t, http.StatusNotFound, do(t, apperr.New(apperr.NotFound)).Code)
	require.Equal(t, http.StatusForbidden, do(t, apperr.New(apperr.Forbidden)).Code)
	require.Equal(t, http.StatusConflict, do(t, apperr.New(apperr.NoCopyAvailable)).Code)
	require.Equal(t, http.StatusConflict, do(t, apperr.New(apperr.DuplicateHold)).Code)
	require.Equal(t, http.StatusConflict, do(t, apperr.New(apperr.OverpaymentNotAllowed)).Code)
	require.Equal(t, http.StatusInternalServerError, do(t, errors.New("db down")).Code)
}

func TestError_ConflictBodyCarriesCode(t *testing.T) {
	rec := do(t, apperr.New(apperr.RenewalLimitExceeded))
	require.Contains(t, rec.Body.String(), `"code":"RENEWAL_LIMIT_EXCEEDED"`)
	require.Contains(t, rec.Body.String(), "renewal limit exceeded")
}
