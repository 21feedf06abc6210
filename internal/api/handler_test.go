package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bazaar-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func respond(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w
}

func TestRespondErrorStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, respond(t, models.ErrNotFound).Code)
	assert.Equal(t, http.StatusForbidden, respond(t, models.ErrForbidden).Code)
	assert.Equal(t, http.StatusConflict, respond(t, models.ErrAlreadySold).Code)
	assert.Equal(t, http.StatusConflict, respond(t, models.ErrInvalidOperation).Code)
	assert.Equal(t, http.StatusConflict, respond(t, models.ErrInvalidState).Code)
	assert.Equal(t, http.StatusInternalServerError, respond(t, assert.AnError).Code)
}

func TestRespondErrorWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("listing 42: %w", models.ErrAlreadySold)
	assert.Equal(t, http.StatusConflict, respond(t, err).Code)
}

func TestRespondErrorInsufficientFunds(t *testing.T) {
	w := respond(t, &models.InsufficientFundsError{
		PriceCopper:     5_000_000,
		AvailableCopper: 1_000_000,
		PendingCopper:   500_000,
	})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "available_copper")
}

func TestRespondErrorLedgerNotInitialized(t *testing.T) {
	// A missing earnings table is a setup problem and must not collapse
	// into the opaque 500 body.
	w := respond(t, fmt.Errorf("reading earnings ledger: %w", models.ErrLedgerNotInitialized))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "setup_required")
	assert.Contains(t, w.Body.String(), models.ErrLedgerNotInitialized.Error())
}
