package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/judyrop/storefront-api/internal/slug"
	"github.com/judyrop/storefront-api/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  uint            `json:"categoryId"`
	TaxID       uint            `json:"taxId"`
	BrandID     uint            `json:"brandId"`
}

type priceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func withPrices(db *gorm.DB) *gorm.DB {
	return db.Preload("Prices", func(db *gorm.DB) *gorm.DB {
		return db.Order("prices.id")
	})
}

// findProduct loads a product and its price history by permalink.
func findProduct(db *gorm.DB, permalink string) (*models.Product, error) {
	var product models.Product
	err := withPrices(db).Where("permalink = ?", permalink).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("product")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// createProduct stores the product with its first price. The caller becomes
// the seller and the permalink is generated from the name.
func (s *Server) createProduct(c *gin.Context) {
	var req productRequest
	if err := s.bindJSON(c, "product.schema.json", &req); err != nil {
		s.respondError(c, err)
		return
	}

	permalink, err := slug.Permalink(req.Name)
	if err != nil {
		s.respondError(c, err)
		return
	}

	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Quantity:    req.Quantity,
		Permalink:   permalink,
		UserID:      currentUser(c).ID,
		CategoryID:  req.CategoryID,
		TaxID:       req.TaxID,
		BrandID:     req.BrandID,
		Prices:      []models.Price{{Amount: req.Price}},
	}
	err = s.store.Do(c.Request.Context(), func(tx *gorm.DB) error {
		return tx.Create(&product).Error
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) listProducts(c *gin.Context) {
	filters, err := s.bindQuery(c, "products_filter.schema.json")
	if err != nil {
		s.respondError(c, err)
		return
	}

	query := withPrices(s.store.Read(c.Request.Context()))
	if q, ok := filters["q"]; ok {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(q))+"%")
	}
	for key, column := range map[string]string{
		"categoryId": "category_id",
		"brandId":    "brand_id",
		"sellerId":   "user_id",
	} {
		if raw, ok := filters[key]; ok {
			id, _ := strconv.ParseUint(raw, 10, 64)
			query = query.Where(column+" = ?", id)
		}
	}

	products := []models.Product{}
	if err := query.Order("id").Find(&products).Error; err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) showProduct(c *gin.Context) {
	product, err := findProduct(s.store.Read(c.Request.Context()), c.Param("permalink"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// addPrice appends an entry to the price history; only the seller may.
func (s *Server) addPrice(c *gin.Context) {
	var req priceRequest
	if err := s.bindJSON(c, "price.schema.json", &req); err != nil {
		s.respondError(c, err)
		return
	}

	me := currentUser(c)
	var product *models.Product
	err := s.store.Do(c.Request.Context(), func(tx *gorm.DB) error {
		found, err := findProduct(tx, c.Param("permalink"))
		if err != nil {
			return err
		}
		if found.UserID != me.ID {
			return forbidden("only the seller can change the price")
		}
		if err := tx.Create(&models.Price{ProductID: found.ID, Amount: req.Amount}).Error; err != nil {
			return err
		}
		product, err = findProduct(tx, found.Permalink)
		return err
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}
