package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortly/internal/database/sqlite"
	"github.com/vadimbarashkov/shortly/internal/ratelimit"
	"github.com/vadimbarashkov/shortly/internal/service"
)

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found")
		}
		dir = parent
	}
}

type APITestSuite struct {
	suite.Suite
	db      *sqlx.DB
	urlRepo *sqlite.URLRepository
	urlSvc  *service.URLService
	server  *httptest.Server
	e       *httpexpect.Expect
}

func (suite *APITestSuite) SetupSuite() {
	dbPath := filepath.Join(suite.T().TempDir(), "shortly.db")

	var err error
	suite.db, err = sqlite.New(sqlite.DSN(dbPath, 5000), 2)
	if err != nil {
		suite.T().Fatalf("Failed to open database: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := suite.db.Close(); err != nil {
			suite.T().Fatalf("Failed to close database: %v", err)
		}
	})

	root, err := findProjectRoot()
	if err != nil {
		suite.T().Fatalf("Failed to get project root: %v", err)
	}

	if err := sqlite.RunMigrations("file://"+filepath.Join(root, "migrations"), dbPath); err != nil {
		suite.T().Fatalf("Failed to run migrations: %v", err)
	}

	suite.urlRepo = sqlite.NewURLRepository(suite.db)
	suite.urlSvc = service.NewURLService(suite.urlRepo, 7)

	r := NewRouter(httplog.NewLogger("test"), suite.urlSvc, ratelimit.New(1000, time.Minute))
	suite.server = httptest.NewServer(r)
	suite.T().Cleanup(suite.server.Close)

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  suite.server.URL,
		Reporter: httpexpect.NewAssertReporter(suite.T()),
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
}

func (suite *APITestSuite) shorten(url string, days int) *httpexpect.Object {
	return suite.e.POST("/api/v1/shorten").
		WithJSON(map[string]any{"url": url, "expiry_days": days}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object()
}

func (suite *APITestSuite) TestShortenAndResolve() {
	resp := suite.shorten("example.com", 1)
	resp.Value("status").String().IsEqual("success")

	data := resp.Value("data").Object()
	data.Value("target_url").String().IsEqual("https://example.com")
	data.Value("short_url").String().Contains(suite.server.URL)

	code := data.Value("short_code").String().Raw()
	suite.Len(code, 7)

	suite.e.GET("/" + code).
		Expect().
		Status(http.StatusFound).
		Header("Location").IsEqual("https://example.com")
}

func (suite *APITestSuite) TestShortenIsIdempotentForLiveURLs() {
	first := suite.shorten("https://dedup.example.com/page", 1)
	code := first.Value("data").Object().Value("short_code").String().Raw()

	second := suite.e.POST("/api/v1/shorten").
		WithJSON(map[string]any{"url": "https://dedup.example.com/page", "expiry_days": 30}).
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	second.Value("data").Object().Value("short_code").String().IsEqual(code)
}

func (suite *APITestSuite) TestClickAccounting() {
	resp := suite.shorten("https://clicks.example.com", 1)
	code := resp.Value("data").Object().Value("short_code").String().Raw()

	for i := 0; i < 3; i++ {
		suite.e.GET("/" + code).
			Expect().
			Status(http.StatusFound)
	}

	info := suite.e.GET("/api/v1/info/" + code).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("data").Object()

	info.Value("click_count").Number().IsEqual(3)
	info.Value("last_accessed").NotNull()
}

func (suite *APITestSuite) TestExpiredCodeIsReclaimedLazily() {
	past := time.Now().Add(-time.Hour)

	_, err := suite.urlRepo.Create(context.Background(), "gone123", "https://expired.example.com", &past)
	suite.Require().NoError(err)

	suite.e.GET("/gone123").
		Expect().
		Status(http.StatusGone)

	suite.e.GET("/gone123").
		Expect().
		Status(http.StatusNotFound)
}

func (suite *APITestSuite) TestShortenValidation() {
	suite.e.POST("/api/v1/shorten").
		WithJSON(map[string]any{"url": "https://example.com", "expiry_days": 400}).
		Expect().
		Status(http.StatusBadRequest)

	suite.e.POST("/api/v1/shorten").
		WithJSON(map[string]any{"url": ""}).
		Expect().
		Status(http.StatusBadRequest)
}

func (suite *APITestSuite) TestUnknownCode() {
	suite.e.GET("/doesnotexist").
		Expect().
		Status(http.StatusNotFound)

	suite.e.GET("/api/v1/info/doesnotexist").
		Expect().
		Status(http.StatusNotFound)
}

func (suite *APITestSuite) TestRateLimitOnAllocationPath() {
	r := NewRouter(httplog.NewLogger("test"), suite.urlSvc, ratelimit.New(2, time.Minute))
	server := httptest.NewServer(r)
	defer server.Close()

	e := httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  server.URL,
		Reporter: httpexpect.NewAssertReporter(suite.T()),
	})

	e.POST("/api/v1/shorten").
		WithJSON(map[string]any{"url": "https://ratelimit.example.com", "expiry_days": 1}).
		Expect().
		Status(http.StatusCreated)

	e.POST("/api/v1/shorten").
		WithJSON(map[string]any{"url": "https://ratelimit.example.com", "expiry_days": 1}).
		Expect().
		Status(http.StatusOK)

	e.POST("/api/v1/shorten").
		WithJSON(map[string]any{"url": "https://ratelimit.example.com", "expiry_days": 1}).
		Expect().
		Status(http.StatusTooManyRequests)

	// Resolution is not rate limited.
	for i := 0; i < 5; i++ {
		e.GET("/api/v1/info/doesnotexist").
			Expect().
			Status(http.StatusNotFound)
	}
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
