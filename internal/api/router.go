// Package api wires the HTTP routes of the storefront.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/judyrop/storefront-api/internal/auth"
	"github.com/judyrop/storefront-api/internal/metrics"
	"github.com/judyrop/storefront-api/internal/middleware"
	"github.com/judyrop/storefront-api/internal/notify"
	"github.com/judyrop/storefront-api/internal/schema"
	"github.com/judyrop/storefront-api/internal/store"
)

// Dependencies are the collaborators SetupRouter needs. Store, Validator,
// Sessions and Hasher are required; the rest fall back to defaults.
type Dependencies struct {
	Store       *store.Store
	Validator   *schema.Validator
	Sessions    *auth.Sessions
	Hasher      *auth.Hasher
	Verifier    *oidc.IDTokenVerifier
	Notifier    notify.Notifier
	MailFrom    string
	Metrics     *metrics.Metrics
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
	Logger      *zap.Logger
}

type Server struct {
	store     *store.Store
	validator *schema.Validator
	sessions  *auth.Sessions
	hasher    *auth.Hasher
	guard     *auth.Middleware
	mailer    *notify.Dispatcher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func SetupRouter(d Dependencies) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Notifier == nil {
		d.Notifier = notify.NewLogNotifier(d.Logger)
	}

	s := &Server{
		store:     d.Store,
		validator: d.Validator,
		sessions:  d.Sessions,
		hasher:    d.Hasher,
		guard:     auth.NewMiddleware(d.Sessions, d.Store, d.Verifier, d.Logger),
		mailer:    notify.NewDispatcher(d.Notifier, d.MailFrom, d.Logger),
		metrics:   d.Metrics,
		log:       d.Logger,
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		d.Metrics.Middleware(),
		middleware.CORS(d.CORSOrigins),
	)

	var throttle gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.RateLimiter != nil {
		throttle = d.RateLimiter.Handler()
	}
	login := s.guard.RequireLogin()
	anonymous := s.guard.RequireAnonymous()

	// Health check endpoint
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	users := r.Group("/users")
	users.POST("", throttle, anonymous, s.registerUser)
	users.POST("/login", throttle, anonymous, s.login)
	users.POST("/logout", s.logout)
	users.GET("", login, s.listUsers)
	users.HEAD("", login, s.usersExist)
	users.GET("/self", login, s.showSelf)
	users.PATCH("/self", login, s.updateSelf)

	r.GET("/categories", s.listCategories)
	r.POST("/categories", login, s.createCategory)
	r.GET("/categories/:id/average-price", s.categoryAveragePrice)

	r.GET("/brands", s.listBrands)
	r.POST("/brands", login, s.createBrand)

	r.GET("/taxes", s.listTaxes)
	r.POST("/taxes", login, s.createTax)

	products := r.Group("/products")
	products.GET("", s.listProducts)
	products.POST("", login, s.createProduct)
	products.GET("/:permalink", s.showProduct)
	products.POST("/:permalink/prices", login, s.addPrice)
	products.GET("/:permalink/reviews", s.listReviews)
	products.POST("/:permalink/reviews", login, s.createReview)

	cart := r.Group("/cart", login)
	cart.GET("", s.showCart)
	cart.PUT("/lines", s.putCartLine)
	cart.DELETE("/lines/:productId", s.deleteCartLine)
	cart.POST("/checkout", s.checkout)

	orders := r.Group("/orders", login)
	orders.GET("", s.listOrders)
	orders.POST("", s.createOrder)

	return r
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
