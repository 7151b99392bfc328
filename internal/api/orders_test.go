package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/judyrop/storefront-api/models"
)

func orderBody(lines ...orderLineRequest) map[string]interface{} {
	return map[string]interface{}{"lines": lines}
}

func quantityOf(t *testing.T, ts *testServer, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, ts.db.First(&p, productID).Error)
	return p.Quantity
}

func TestCreateOrder(t *testing.T) {
	ts := newTestServer(t)
	seller := ts.createUser(t, "grace")
	buyer := ts.createUser(t, "linus")
	c := ts.seedCatalog(t)
	rye := ts.createProduct(t, c, seller.ID, "Rye", 5, "2.50")
	cake := ts.createProduct(t, c, seller.ID, "Cake", 1, "10.00")

	w := ts.do(t, http.MethodPost, "/orders", orderBody(
		orderLineRequest{ProductID: rye.ID, Quantity: 2},
		orderLineRequest{ProductID: cake.ID, Quantity: 1},
	), buyer.ID)

	require.Equal(t, http.StatusCreated, w.Code)
	var order models.Order
	decodeBody(t, w, &order)
	assert.Equal(t, buyer.ID, order.UserID)
	assert.Equal(t, models.OrderStatusPlaced, order.Status)
	assert.True(t, decimal.RequireFromString("15").Equal(order.Total), order.Total.String())
	require.Len(t, order.Lines, 2)
	assert.True(t, decimal.RequireFromString("2.5").Equal(order.Lines[0].UnitPrice))

	assert.Equal(t, 3, quantityOf(t, ts, rye.ID))
	assert.Equal(t, 0, quantityOf(t, ts, cake.ID))

	assert.Eventually(t, func() bool {
		for _, msg := range ts.mail.messages() {
			if msg.To == buyer.Email && strings.Contains(msg.Text, "Total: 15.00") {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestCreateOrderRollsBackOnInsufficientStock(t *testing.T) {
	ts := newTestServer(t)
	seller := ts.createUser(t, "grace")
	buyer := ts.createUser(t, "linus")
	c := ts.seedCatalog(t)
	rye := ts.createProduct(t, c, seller.ID, "Rye", 5, "2.50")
	cake := ts.createProduct(t, c, seller.ID, "Cake", 1, "10.00")

	w := ts.do(t, http.MethodPost, "/orders", orderBody(
		orderLineRequest{ProductID: rye.ID, Quantity: 2},
		orderLineRequest{ProductID: cake.ID, Quantity: 3},
	), buyer.ID)

	assertError(t, w, http.StatusBadRequest, "insufficient stock for product "+cake.Permalink)
	assert.Equal(t, 5, quantityOf(t, ts, rye.ID))
	assert.Equal(t, 1, quantityOf(t, ts, cake.ID))
	assert.Zero(t, count(t, ts.db, &models.Order{}))
	assert.Zero(t, count(t, ts.db, &models.OrderLine{}))
}

func TestCreateOrderRejectsInvalidLines(t *testing.T) {
	ts := newTestServer(t)
	buyer := ts.createUser(t, "linus")

	tests := []struct {
		name    string
		body    interface{}
		message string
	}{
		{"no lines", map[string]interface{}{"lines": []interface{}{}}, "Array must have at least 1 items"},
		{"zero quantity", orderBody(orderLineRequest{ProductID: 1, Quantity: 0}), "Must be greater than or equal to 1"},
		{"unknown product", orderBody(orderLineRequest{ProductID: 42, Quantity: 1}), "product 42 does not exist"},
		{"id out of range", `{"lines":[{"productId":1e30,"quantity":1}]}`, "invalid value for lines.productId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, ts.do(t, http.MethodPost, "/orders", tt.body, buyer.ID), http.StatusBadRequest, tt.message)
		})
	}
	assert.Zero(t, count(t, ts.db, &models.Order{}))
}

func TestListOrders(t *testing.T) {
	ts := newTestServer(t)
	seller := ts.createUser(t, "grace")
	buyer := ts.createUser(t, "linus")
	c := ts.seedCatalog(t)
	rye := ts.createProduct(t, c, seller.ID, "Rye", 5, "2.50")

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodPost, "/orders", orderBody(orderLineRequest{ProductID: rye.ID, Quantity: 1}), buyer.ID)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := ts.do(t, http.MethodGet, "/orders", nil, buyer.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Orders []models.Order `json:"orders"`
	}
	decodeBody(t, w, &resp)
	require.Len(t, resp.Orders, 2)
	assert.Greater(t, resp.Orders[0].ID, resp.Orders[1].ID)
	assert.Len(t, resp.Orders[0].Lines, 1)

	w = ts.do(t, http.MethodGet, "/orders", nil, seller.ID)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &resp)
	assert.Empty(t, resp.Orders)

	assertError(t, ts.do(t, http.MethodGet, "/orders", nil, 0), http.StatusBadRequest, "Unauthorized Access")
}
