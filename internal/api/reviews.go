package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/judyrop/storefront-api/models"
)

type reviewRequest struct {
	Comment string  `json:"comment"`
	Score   float64 `json:"score"`
}

// createReview stores the caller's review of a product. The composite key
// rejects a second review by the same user.
func (s *Server) createReview(c *gin.Context) {
	var req reviewRequest
	if err := s.bindJSON(c, "review.schema.json", &req); err != nil {
		s.respondError(c, err)
		return
	}

	var review models.Review
	err := s.store.Do(c.Request.Context(), func(tx *gorm.DB) error {
		product, err := findProduct(tx, c.Param("permalink"))
		if err != nil {
			return err
		}
		review = models.Review{
			UserID:    currentUser(c).ID,
			ProductID: product.ID,
			Comment:   req.Comment,
			Score:     req.Score,
		}
		return tx.Create(&review).Error
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (s *Server) listReviews(c *gin.Context) {
	db := s.store.Read(c.Request.Context())
	product, err := findProduct(db, c.Param("permalink"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	reviews := []models.Review{}
	if err := db.Where("product_id = ?", product.ID).Order("user_id").Find(&reviews).Error; err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}
