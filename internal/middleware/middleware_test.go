package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/time/rate"

	"github.com/petespantry/storefront/internal/i18n"
	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository/memstore"
	"github.com/petespantry/storefront/internal/services"
	"github.com/petespantry/storefront/internal/utils"
)

func TestMain(m *testing.M) {
	if err := i18n.Initialize(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type MiddlewareTestSuite struct {
	suite.Suite
	store  *memstore.Store
	jwt    *utils.JWTManager
	router *gin.Engine
}

func (suite *MiddlewareTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.store = memstore.New()
	suite.jwt = utils.NewJWTManager("test-secret", "storefront-test", time.Hour)

	users := services.NewUserService(suite.store)
	auth := AuthRequired(NewJWTAuthenticator(suite.jwt), users)

	suite.router = gin.New()
	suite.router.Use(I18nMiddleware())
	suite.router.Use(AuditLogMiddleware(suite.store.AuditLogs()))
	suite.router.GET("/v1/me", auth, func(c *gin.Context) {
		userID, _ := utils.GetUserIDFromContext(c)
		role, _ := utils.GetUserRoleFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
	})
	suite.router.POST("/v1/payment/card", auth, func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	suite.router.GET("/v1/admin/ping", auth, AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

func (suite *MiddlewareTestSuite) token(userID string) string {
	token, err := suite.jwt.Generate(userID, userID+"@example.com", "customer")
	require.NoError(suite.T(), err)
	return token
}

func (suite *MiddlewareTestSuite) do(method, path, token string, body []byte) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *MiddlewareTestSuite) TestAuthRequiredProvisionsUser() {
	w := suite.do("GET", "/v1/me", suite.token("auth0|pete"), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(suite.T(), "auth0|pete", body["user_id"])
	assert.Equal(suite.T(), "customer", body["role"])

	user, err := suite.store.Users().GetByID(suite.T().Context(), "auth0|pete")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "auth0|pete@example.com", user.Email)
}

func (suite *MiddlewareTestSuite) TestAuthRequiredRejects() {
	w := suite.do("GET", "/v1/me", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "Authentication required")

	w = suite.do("GET", "/v1/me", "not-a-token", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "Invalid or expired token")

	other := utils.NewJWTManager("other-secret", "storefront-test", time.Hour)
	forged, err := other.Generate("auth0|pete", "", "admin")
	require.NoError(suite.T(), err)
	w = suite.do("GET", "/v1/me", forged, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *MiddlewareTestSuite) TestAdminRequiredUsesStoredRole() {
	// A role claim in the token is not trusted.
	token, err := suite.jwt.Generate("auth0|sneaky", "", "admin")
	require.NoError(suite.T(), err)
	w := suite.do("GET", "/v1/admin/ping", token, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	require.NoError(suite.T(), suite.store.Users().Create(suite.T().Context(), &models.User{ID: "auth0|boss", Role: models.UserRoleAdmin}))
	w = suite.do("GET", "/v1/admin/ping", suite.token("auth0|boss"), nil)
	assert.Equal(suite.T(), http.StatusNoContent, w.Code)
}

func (suite *MiddlewareTestSuite) TestAuditLogRedactsTokens() {
	body := []byte(`{"token":"tok_live_secret","items":[{"id":"x","quantity":1}],"shipping_address":"12 Long Street"}`)
	w := suite.do("POST", "/v1/payment/card", suite.token("auth0|pete"), body)
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	var entries []models.AuditLog
	require.Eventually(suite.T(), func() bool {
		entries = suite.store.AuditEntries()
		return len(entries) == 1
	}, time.Second, 5*time.Millisecond)

	entry := entries[0]
	assert.Equal(suite.T(), "POST /v1/payment/card", entry.Action)
	assert.Equal(suite.T(), "payment", entry.ResourceType)
	assert.Equal(suite.T(), "auth0|pete", entry.UserID)
	assert.Equal(suite.T(), http.StatusCreated, entry.StatusCode)
	assert.Equal(suite.T(), utils.Fingerprint("tok_live_secret"), entry.NewValues["token"])
	assert.Equal(suite.T(), "12 Long Street", entry.NewValues["shipping_address"])
	assert.NotContains(suite.T(), suite.encode(entry), "tok_live_secret")
}

func (suite *MiddlewareTestSuite) TestAuditLogSkipsReads() {
	suite.do("GET", "/v1/me", suite.token("auth0|pete"), nil)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(suite.T(), suite.store.AuditEntries())
}

func (suite *MiddlewareTestSuite) encode(v interface{}) string {
	data, err := json.Marshal(v)
	require.NoError(suite.T(), err)
	return string(data)
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"af-ZA,af;q=0.9,en;q=0.8", "af"},
		{"fr-FR, en-GB;q=0.8", "en"},
		{"de", "en"},
		{"AF_za", "af"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLanguage(tt.header), tt.header)
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(rate.Every(time.Hour), 2)

	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(ip string) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2"), "limits are per client")

	limiter.evictIdle(0)
	assert.Equal(t, http.StatusOK, call("10.0.0.1"))
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://shop.example.com"}))
	r.GET("/v1/products", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("OPTIONS", "/v1/products", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Idempotency-Key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), "idempotency-key"))

	req = httptest.NewRequest("GET", "/v1/products", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
