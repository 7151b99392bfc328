package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/judyrop/storefront-api/config"
	"github.com/judyrop/storefront-api/internal/auth"
	"github.com/judyrop/storefront-api/internal/notify"
	"github.com/judyrop/storefront-api/internal/schema"
	"github.com/judyrop/storefront-api/internal/slug"
	"github.com/judyrop/storefront-api/internal/store/storetest"
	"github.com/judyrop/storefront-api/models"
)

const testPassword = "correct horse battery"

func init() {
	gin.SetMode(gin.TestMode)
}

// outbox records every message handed to it.
type outbox struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (o *outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) messages() []notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notify.Message(nil), o.sent...)
}

type testServer struct {
	router   *gin.Engine
	db       *gorm.DB
	sessions *auth.Sessions
	hasher   *auth.Hasher
	mail     *outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, db := storetest.NewStore(t)

	ts := &testServer{
		db:       db,
		sessions: auth.NewSessions(config.SessionConfig{Secret: "test-secret", CookieName: "session", TTL: time.Hour}),
		hasher:   auth.NewHasher(config.PasswordConfig{Time: 1, Memory: 8 * 1024, Threads: 1}),
		mail:     &outbox{},
	}
	ts.router = SetupRouter(Dependencies{
		Store:     st,
		Validator: schema.New("../../schemas"),
		Sessions:  ts.sessions,
		Hasher:    ts.hasher,
		Notifier:  ts.mail,
		MailFrom:  "shop@example.com",
		Logger:    zap.NewNop(),
	})
	return ts
}

// do sends a request, signed in as userID unless it is zero.
func (ts *testServer) do(t *testing.T, method, path string, body interface{}, userID uint) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := ts.sessions.Sign(userID)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) createUser(t *testing.T, username string) models.User {
	t.Helper()
	hash, err := ts.hasher.Hash(testPassword)
	require.NoError(t, err)
	user := models.User{
		FirstName:    "Test",
		LastName:     "User",
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
	}
	require.NoError(t, ts.db.Create(&user).Error)
	return user
}

type catalog struct {
	category models.Category
	brand    models.Brand
	tax      models.Tax
}

func (ts *testServer) seedCatalog(t *testing.T) catalog {
	t.Helper()
	c := catalog{
		category: models.Category{Name: "Bakery"},
		brand:    models.Brand{Name: "Acme"},
		tax:      models.Tax{Name: "VAT", Rate: decimal.RequireFromString("0.16")},
	}
	require.NoError(t, ts.db.Create(&c.category).Error)
	require.NoError(t, ts.db.Create(&c.brand).Error)
	require.NoError(t, ts.db.Create(&c.tax).Error)
	return c
}

func (ts *testServer) createProduct(t *testing.T, c catalog, sellerID uint, name string, quantity int, price string) models.Product {
	t.Helper()
	permalink, err := slug.Permalink(name)
	require.NoError(t, err)
	product := models.Product{
		Name:       name,
		Quantity:   quantity,
		Permalink:  permalink,
		UserID:     sellerID,
		CategoryID: c.category.ID,
		TaxID:      c.tax.ID,
		BrandID:    c.brand.ID,
		Prices:     []models.Price{{Amount: decimal.RequireFromString(price)}},
	}
	require.NoError(t, ts.db.Create(&product).Error)
	return product
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	assert.Equal(t, status, w.Code)
	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, status, body.Code)
	assert.Equal(t, message, body.Message)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil, 0)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/health", nil, 0)

	w := ts.do(t, http.MethodGet, "/metrics", nil, 0)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storefront_http_requests_total")
}

func TestInvalidJSONPayload(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "ada")

	w := ts.do(t, http.MethodPost, "/brands", `{"name":`, user.ID)

	assertError(t, w, http.StatusBadRequest, "invalid JSON payload")
}
