package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/judyrop/storefront-api/models"
)

type categoryRequest struct {
	Name     string `json:"name"`
	ParentID *uint  `json:"parentId"`
}

type brandRequest struct {
	Name string `json:"name"`
}

type taxRequest struct {
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}

// create validates the body into req, builds the row and stores it in its
// own unit of work.
func create[Req any, M any](s *Server, c *gin.Context, schemaID string, build func(Req) M) {
	var req Req
	if err := s.bindJSON(c, schemaID, &req); err != nil {
		s.respondError(c, err)
		return
	}

	row := build(req)
	err := s.store.Do(c.Request.Context(), func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func list[M any](s *Server, c *gin.Context, key string) {
	rows := []M{}
	if err := s.store.Read(c.Request.Context()).Order("id").Find(&rows).Error; err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: rows})
}

func (s *Server) createCategory(c *gin.Context) {
	create(s, c, "category.schema.json", func(req categoryRequest) models.Category {
		return models.Category{Name: req.Name, ParentID: req.ParentID}
	})
}

func (s *Server) listCategories(c *gin.Context) {
	list[models.Category](s, c, "categories")
}

func (s *Server) createBrand(c *gin.Context) {
	create(s, c, "brand.schema.json", func(req brandRequest) models.Brand {
		return models.Brand{Name: req.Name}
	})
}

func (s *Server) listBrands(c *gin.Context) {
	list[models.Brand](s, c, "brands")
}

func (s *Server) createTax(c *gin.Context) {
	create(s, c, "tax.schema.json", func(req taxRequest) models.Tax {
		return models.Tax{Name: req.Name, Rate: req.Rate}
	})
}

func (s *Server) listTaxes(c *gin.Context) {
	list[models.Tax](s, c, "taxes")
}

// categoryAveragePrice averages the current price of every product in the
// category and its descendants.
func (s *Server) categoryAveragePrice(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}

	db := s.store.Read(c.Request.Context())
	var category models.Category
	if err := db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = notFound("category")
		}
		s.respondError(c, err)
		return
	}

	ids, err := descendantCategoryIDs(db, category.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var products []models.Product
	err = db.Preload("Prices").Where("category_id IN ?", ids).Find(&products).Error
	if err != nil {
		s.respondError(c, err)
		return
	}

	sum := decimal.Zero
	priced := 0
	for i := range products {
		if p := products[i].CurrentPrice(); p != nil {
			sum = sum.Add(p.Amount)
			priced++
		}
	}
	avg := decimal.Zero
	if priced > 0 {
		avg = sum.Div(decimal.NewFromInt(int64(priced))).Round(2)
	}

	c.JSON(http.StatusOK, gin.H{
		"categoryId":   category.ID,
		"categoryName": category.Name,
		"averagePrice": avg,
	})
}

func descendantCategoryIDs(db *gorm.DB, categoryID uint) ([]uint, error) {
	ids := []uint{categoryID}
	frontier := []uint{categoryID}
	for len(frontier) > 0 {
		var children []uint
		if err := db.Model(&models.Category{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		ids = append(ids, children...)
		frontier = children
	}
	return ids, nil
}
