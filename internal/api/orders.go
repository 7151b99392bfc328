package api

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/judyrop/storefront-api/internal/notify"
	"github.com/judyrop/storefront-api/models"
)

type orderLineRequest struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

type orderRequest struct {
	Lines []orderLineRequest `json:"lines"`
}

// placeOrder snapshots prices, takes stock and stores the order with all of
// its lines on tx. Any failing line fails the whole order.
func placeOrder(tx *gorm.DB, userID uint, lines []orderLineRequest) (*models.Order, error) {
	order := models.Order{
		UserID: userID,
		Status: models.OrderStatusPlaced,
		Total:  decimal.Zero,
	}

	for _, line := range lines {
		var product models.Product
		err := withPrices(tx).First(&product, line.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, badRequest("product %d does not exist", line.ProductID)
		}
		if err != nil {
			return nil, err
		}

		price := product.CurrentPrice()
		if price == nil {
			return nil, badRequest("product %s has no price", product.Permalink)
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND quantity >= ?", product.ID, line.Quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", line.Quantity))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, badRequest("insufficient stock for product %s", product.Permalink)
		}

		order.Lines = append(order.Lines, models.OrderLine{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: price.Amount,
		})
		order.Total = order.Total.Add(price.Amount.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if err := tx.Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Server) createOrder(c *gin.Context) {
	var req orderRequest
	if err := s.bindJSON(c, "order.schema.json", &req); err != nil {
		s.respondError(c, err)
		return
	}

	me := currentUser(c)
	var order *models.Order
	err := s.store.Do(c.Request.Context(), func(tx *gorm.DB) error {
		var err error
		order, err = placeOrder(tx, me.ID, req.Lines)
		return err
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.orderPlaced(me, order)
	c.JSON(http.StatusCreated, order)
}

func (s *Server) listOrders(c *gin.Context) {
	orders := []models.Order{}
	err := s.store.Read(c.Request.Context()).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("order_lines.id") }).
		Where("user_id = ?", currentUser(c).ID).
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// orderPlaced runs the side effects of a committed order.
func (s *Server) orderPlaced(user *models.User, order *models.Order) {
	s.metrics.OrderPlaced()
	s.mailer.Dispatch(orderMessage(user, order))
}

func orderMessage(user *models.User, order *models.Order) notify.Message {
	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s, your order #%d has been placed!\n", user.FirstName, order.ID)
	for _, line := range order.Lines {
		fmt.Fprintf(&text, "- product %d x%d @ %s\n", line.ProductID, line.Quantity, line.UnitPrice.StringFixed(2))
	}
	fmt.Fprintf(&text, "Total: %s\n", order.Total.StringFixed(2))

	return notify.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Order #%d placed", order.ID),
		HTML:    "<html><body><pre>" + html.EscapeString(text.String()) + "</pre></body></html>",
		Text:    text.String(),
	}
}
