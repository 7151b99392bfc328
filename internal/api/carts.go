package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/judyrop/storefront-api/models"
)

type cartLineRequest struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// userCart returns the caller's cart with its lines, creating it on first use.
func userCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := tx.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
		return nil, err
	}
	err := tx.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("cart_lines.id")
	}).First(&cart, cart.ID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// cartAction runs fn against the caller's cart and responds with the result.
func (s *Server) cartAction(c *gin.Context, fn func(tx *gorm.DB, cart *models.Cart) error) {
	userID := currentUser(c).ID
	var cart *models.Cart
	err := s.store.Do(c.Request.Context(), func(tx *gorm.DB) error {
		current, err := userCart(tx, userID)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(tx, current); err != nil {
				return err
			}
			if current, err = userCart(tx, userID); err != nil {
				return err
			}
		}
		cart = current
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *Server) showCart(c *gin.Context) {
	s.cartAction(c, nil)
}

// putCartLine sets the quantity of a product in the cart; zero removes it.
func (s *Server) putCartLine(c *gin.Context) {
	var req cartLineRequest
	if err := s.bindJSON(c, "cart_line.schema.json", &req); err != nil {
		s.respondError(c, err)
		return
	}

	s.cartAction(c, func(tx *gorm.DB, cart *models.Cart) error {
		if req.Quantity == 0 {
			return tx.Where("cart_id = ? AND product_id = ?", cart.ID, req.ProductID).
				Delete(&models.CartLine{}).Error
		}
		line := models.CartLine{CartID: cart.ID, ProductID: req.ProductID, Quantity: req.Quantity}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
		}).Create(&line).Error
	})
}

func (s *Server) deleteCartLine(c *gin.Context) {
	productID, err := paramID(c, "productId")
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.cartAction(c, func(tx *gorm.DB, cart *models.Cart) error {
		return tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			Delete(&models.CartLine{}).Error
	})
}

// checkout turns the cart into an order and empties it in one transaction.
func (s *Server) checkout(c *gin.Context) {
	me := currentUser(c)
	var order *models.Order
	err := s.store.Do(c.Request.Context(), func(tx *gorm.DB) error {
		cart, err := userCart(tx, me.ID)
		if err != nil {
			return err
		}
		if len(cart.Lines) == 0 {
			return badRequest("cart is empty")
		}

		lines := make([]orderLineRequest, 0, len(cart.Lines))
		for _, l := range cart.Lines {
			lines = append(lines, orderLineRequest{ProductID: l.ProductID, Quantity: l.Quantity})
		}
		if order, err = placeOrder(tx, me.ID, lines); err != nil {
			return err
		}
		return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartLine{}).Error
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.orderPlaced(me, order)
	c.JSON(http.StatusCreated, order)
}
