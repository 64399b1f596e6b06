package api

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"pos-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkoutErrorStatus(t *testing.T, err error) (int, map[string]any) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	writeCheckoutError(c, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestWriteCheckoutErrorMapping(t *testing.T) {
	status, body := checkoutErrorStatus(t, models.ErrEmptyCart)
	assert.Equal(t, 400, status)
	assert.Equal(t, "VALIDATION", body["errorCode"])

	status, body = checkoutErrorStatus(t, models.ErrTotalMismatch)
	assert.Equal(t, 400, status)
	assert.Equal(t, "VALIDATION", body["errorCode"])

	status, body = checkoutErrorStatus(t, &models.ProductNotFoundError{ProductID: 9})
	assert.Equal(t, 400, status)
	assert.Equal(t, "PRODUCT_NOT_FOUND", body["errorCode"])
	assert.Equal(t, float64(9), body["productId"])

	status, body = checkoutErrorStatus(t, &models.InsufficientStockError{
		ProductID: 3, Name: "Espresso", Requested: 6, Available: 4,
	})
	assert.Equal(t, 409, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["errorCode"])
	assert.Equal(t, float64(6), body["requested"])
	assert.Equal(t, float64(4), body["available"])

	status, body = checkoutErrorStatus(t, models.ErrConcurrencyConflict)
	assert.Equal(t, 409, status)
	assert.Equal(t, "CONCURRENCY_CONFLICT", body["errorCode"])

	status, body = checkoutErrorStatus(t, errors.New("connection refused"))
	assert.Equal(t, 503, status)
	assert.Equal(t, "PERSISTENCE_FAILURE", body["errorCode"])
}

func TestPagingParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/orders?pageNumber=3&pageSize=15", nil)

	page, pageSize := pagingParams(c)
	assert.Equal(t, 3, page)
	assert.Equal(t, 15, pageSize)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/orders", nil)
	page, pageSize = pagingParams(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, pageSize)
}
