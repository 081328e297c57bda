package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/link-shortener/internal/alias"
	"github.com/vadimbarashkov/link-shortener/internal/counter"
	"github.com/vadimbarashkov/link-shortener/internal/database"
	"github.com/vadimbarashkov/link-shortener/internal/models"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	args := r.Called(ctx, shortCode, originalURL, expiresAt)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	args := r.Called(ctx, shortCode)
	return args.Bool(0), args.Error(1)
}

type MockCounter struct {
	mock.Mock
}

func (c *MockCounter) NextValue(ctx context.Context) (int64, error) {
	args := c.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (c *MockCounter) CurrentValue(ctx context.Context) (int64, error) {
	args := c.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (r *MockResolver) Resolve(ctx context.Context, shortCode string) (string, error) {
	args := r.Called(ctx, shortCode)
	return args.String(0), args.Error(1)
}

func (r *MockResolver) HitRate(ctx context.Context) (float64, error) {
	args := r.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (r *MockResolver) ResetStats(ctx context.Context) error {
	args := r.Called(ctx)
	return args.Error(0)
}

func ptr[T any](v T) *T {
	return &v
}

func newURL(shortCode, originalURL string, expiresAt *time.Time) *models.URL {
	return &models.URL{
		ID:          1,
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}
}

type URLServiceTestSuite struct {
	suite.Suite
	errUnknown   error
	repoMock     *MockURLRepository
	counterMock  *MockCounter
	resolverMock *MockResolver
	svc          *URLService
}

func (suite *URLServiceTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
}

func (suite *URLServiceTestSuite) SetupSubTest() {
	suite.repoMock = new(MockURLRepository)
	suite.counterMock = new(MockCounter)
	suite.resolverMock = new(MockResolver)
	suite.svc = NewURLService(suite.repoMock, suite.counterMock, suite.resolverMock, "http://localhost:8080/", discardLogger())
}

func (suite *URLServiceTestSuite) TearDownSubTest() {
	suite.repoMock.AssertExpectations(suite.T())
	suite.counterMock.AssertExpectations(suite.T())
	suite.resolverMock.AssertExpectations(suite.T())
}

func (suite *URLServiceTestSuite) TestShortenURL() {
	suite.Run("blank original url", func() {
		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{OriginalURL: "   "})

		suite.Error(err)
		suite.ErrorIs(err, ErrInvalidRequest)
		suite.Nil(res)
	})

	suite.Run("first counter value", func() {
		suite.counterMock.On("NextValue", mock.Anything).Once().Return(int64(1), nil)
		suite.repoMock.
			On("Create", mock.Anything, "1", "https://example.com", (*time.Time)(nil)).
			Once().
			Return(newURL("1", "https://example.com", nil), nil)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{OriginalURL: " https://example.com "})

		suite.NoError(err)
		suite.Equal("1", res.ShortCode)
		suite.Equal("http://localhost:8080/1", res.ShortURL)
		suite.Equal("https://example.com", res.OriginalURL)
		suite.Nil(res.ExpirationDate)
	})

	suite.Run("counter value 62", func() {
		suite.counterMock.On("NextValue", mock.Anything).Once().Return(int64(62), nil)
		suite.repoMock.
			On("Create", mock.Anything, "10", "https://example.com", (*time.Time)(nil)).
			Once().
			Return(newURL("10", "https://example.com", nil), nil)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{OriginalURL: "https://example.com"})

		suite.NoError(err)
		suite.Equal("10", res.ShortCode)
	})

	suite.Run("blank alias uses counter", func() {
		suite.counterMock.On("NextValue", mock.Anything).Once().Return(int64(5), nil)
		suite.repoMock.
			On("Create", mock.Anything, "5", "https://example.com", (*time.Time)(nil)).
			Once().
			Return(newURL("5", "https://example.com", nil), nil)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{
			OriginalURL: "https://example.com",
			Alias:       ptr("  "),
		})

		suite.NoError(err)
		suite.Equal("5", res.ShortCode)
	})

	suite.Run("counter unavailable", func() {
		suite.counterMock.
			On("NextValue", mock.Anything).
			Once().
			Return(int64(0), counter.ErrUnavailable)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{OriginalURL: "https://example.com"})

		suite.Error(err)
		suite.ErrorIs(err, counter.ErrUnavailable)
		suite.Nil(res)
	})

	suite.Run("generated code taken by alias", func() {
		suite.counterMock.On("NextValue", mock.Anything).Once().Return(int64(1), nil)
		suite.counterMock.On("NextValue", mock.Anything).Once().Return(int64(2), nil)
		suite.repoMock.
			On("Create", mock.Anything, "1", "https://example.com", (*time.Time)(nil)).
			Once().
			Return(nil, database.ErrShortCodeExists)
		suite.repoMock.
			On("Create", mock.Anything, "2", "https://example.com", (*time.Time)(nil)).
			Once().
			Return(newURL("2", "https://example.com", nil), nil)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{OriginalURL: "https://example.com"})

		suite.NoError(err)
		suite.Equal("2", res.ShortCode)
	})

	suite.Run("maximum retries error", func() {
		suite.counterMock.On("NextValue", mock.Anything).Times(5).Return(int64(7), nil)
		suite.repoMock.
			On("Create", mock.Anything, "7", "https://example.com", (*time.Time)(nil)).
			Times(5).
			Return(nil, database.ErrShortCodeExists)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{OriginalURL: "https://example.com"})

		suite.Error(err)
		suite.ErrorIs(err, ErrMaxRetriesExceeded)
		suite.Nil(res)
	})

	suite.Run("unknown error", func() {
		suite.counterMock.On("NextValue", mock.Anything).Once().Return(int64(1), nil)
		suite.repoMock.
			On("Create", mock.Anything, "1", "https://example.com", (*time.Time)(nil)).
			Once().
			Return(nil, suite.errUnknown)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{OriginalURL: "https://example.com"})

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(res)
	})

	suite.Run("alias", func() {
		suite.repoMock.On("ExistsByShortCode", mock.Anything, "myAlias1").Once().Return(false, nil)
		suite.repoMock.
			On("Create", mock.Anything, "myAlias1", "https://example.com", (*time.Time)(nil)).
			Once().
			Return(newURL("myAlias1", "https://example.com", nil), nil)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{
			OriginalURL: "https://example.com",
			Alias:       ptr(" myAlias1 "),
		})

		suite.NoError(err)
		suite.Equal("myAlias1", res.ShortCode)
		suite.Equal("http://localhost:8080/myAlias1", res.ShortURL)
	})

	suite.Run("invalid alias", func() {
		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{
			OriginalURL: "https://example.com",
			Alias:       ptr("my-alias"),
		})

		suite.Error(err)
		suite.ErrorIs(err, alias.ErrInvalidAlias)
		suite.Nil(res)

		var aliasErr *alias.Error
		suite.Require().ErrorAs(err, &aliasErr)
		suite.Equal(alias.ReasonInvalidCharacter, aliasErr.Reason)
	})

	suite.Run("alias too short", func() {
		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{
			OriginalURL: "https://example.com",
			Alias:       ptr("ab"),
		})

		suite.ErrorIs(err, alias.ErrInvalidAlias)
		suite.Nil(res)
	})

	suite.Run("alias too long", func() {
		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{
			OriginalURL: "https://example.com",
			Alias:       ptr(strings.Repeat("a", alias.MaxLength+1)),
		})

		suite.ErrorIs(err, alias.ErrInvalidAlias)
		suite.Nil(res)
	})

	suite.Run("alias already exists", func() {
		suite.repoMock.On("ExistsByShortCode", mock.Anything, "taken").Once().Return(true, nil)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{
			OriginalURL: "https://example.com",
			Alias:       ptr("taken"),
		})

		suite.Error(err)
		suite.ErrorIs(err, ErrAliasConflict)
		suite.Nil(res)
	})

	suite.Run("alias taken concurrently", func() {
		suite.repoMock.On("ExistsByShortCode", mock.Anything, "taken").Once().Return(false, nil)
		suite.repoMock.
			On("Create", mock.Anything, "taken", "https://example.com", (*time.Time)(nil)).
			Once().
			Return(nil, database.ErrShortCodeExists)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{
			OriginalURL: "https://example.com",
			Alias:       ptr("taken"),
		})

		suite.ErrorIs(err, ErrAliasConflict)
		suite.Nil(res)
	})

	suite.Run("alias check error", func() {
		suite.repoMock.On("ExistsByShortCode", mock.Anything, "myAlias").Once().Return(false, suite.errUnknown)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{
			OriginalURL: "https://example.com",
			Alias:       ptr("myAlias"),
		})

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(res)
	})

	suite.Run("expiration date", func() {
		want := time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC)

		suite.counterMock.On("NextValue", mock.Anything).Once().Return(int64(1), nil)
		suite.repoMock.
			On("Create", mock.Anything, "1", "https://example.com", mock.MatchedBy(func(t *time.Time) bool {
				return t != nil && t.Equal(want)
			})).
			Once().
			Return(newURL("1", "https://example.com", &want), nil)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{
			OriginalURL:    "https://example.com",
			ExpirationDate: ptr("2030-12-31T23:59:59"),
		})

		suite.NoError(err)
		suite.Require().NotNil(res.ExpirationDate)
		suite.Equal("2030-12-31T23:59:59", *res.ExpirationDate)
	})

	suite.Run("rfc3339 expiration date", func() {
		want := time.Date(2030, 12, 31, 20, 59, 59, 0, time.UTC)

		suite.counterMock.On("NextValue", mock.Anything).Once().Return(int64(1), nil)
		suite.repoMock.
			On("Create", mock.Anything, "1", "https://example.com", mock.MatchedBy(func(t *time.Time) bool {
				return t != nil && t.Equal(want)
			})).
			Once().
			Return(newURL("1", "https://example.com", &want), nil)

		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{
			OriginalURL:    "https://example.com",
			ExpirationDate: ptr("2030-12-31T23:59:59+03:00"),
		})

		suite.NoError(err)
		suite.Equal("2030-12-31T23:59:59+03:00", *res.ExpirationDate)
	})

	suite.Run("invalid expiration date", func() {
		res, err := suite.svc.ShortenURL(context.Background(), ShortenParams{
			OriginalURL:    "https://example.com",
			ExpirationDate: ptr("31/12/2030"),
		})

		suite.Error(err)
		suite.ErrorIs(err, ErrInvalidDateFormat)
		suite.Nil(res)
	})
}

func (suite *URLServiceTestSuite) TestShortenSimple() {
	suite.Run("success", func() {
		suite.counterMock.On("NextValue", mock.Anything).Once().Return(int64(61), nil)
		suite.repoMock.
			On("Create", mock.Anything, "Z", "https://example.com", (*time.Time)(nil)).
			Once().
			Return(newURL("Z", "https://example.com", nil), nil)

		code, err := suite.svc.ShortenSimple(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.Equal("Z", code)
	})

	suite.Run("blank url", func() {
		code, err := suite.svc.ShortenSimple(context.Background(), "")

		suite.ErrorIs(err, ErrInvalidRequest)
		suite.Empty(code)
	})
}

func (suite *URLServiceTestSuite) TestResolveShortCode() {
	suite.Run("invalid characters", func() {
		url, err := suite.svc.ResolveShortCode(context.Background(), "not-base62")

		suite.Error(err)
		suite.ErrorIs(err, database.ErrURLNotFound)
		suite.Empty(url)
	})

	suite.Run("not found", func() {
		suite.resolverMock.
			On("Resolve", mock.Anything, "abc").
			Once().
			Return("", database.ErrURLNotFound)

		url, err := suite.svc.ResolveShortCode(context.Background(), "abc")

		suite.ErrorIs(err, database.ErrURLNotFound)
		suite.Empty(url)
	})

	suite.Run("success", func() {
		suite.resolverMock.
			On("Resolve", mock.Anything, "abc").
			Once().
			Return("https://example.com", nil)

		url, err := suite.svc.ResolveShortCode(context.Background(), "abc")

		suite.NoError(err)
		suite.Equal("https://example.com", url)
	})
}

func (suite *URLServiceTestSuite) TestCacheStats() {
	suite.Run("hit rate", func() {
		suite.resolverMock.On("HitRate", mock.Anything).Once().Return(0.8, nil)

		rate, err := suite.svc.CacheHitRate(context.Background())

		suite.NoError(err)
		suite.Equal(0.8, rate)
	})

	suite.Run("hit rate error", func() {
		suite.resolverMock.On("HitRate", mock.Anything).Once().Return(0.0, suite.errUnknown)

		_, err := suite.svc.CacheHitRate(context.Background())

		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("reset", func() {
		suite.resolverMock.On("ResetStats", mock.Anything).Once().Return(nil)

		err := suite.svc.ResetCacheStats(context.Background())

		suite.NoError(err)
	})
}

func (suite *URLServiceTestSuite) TestCounterValue() {
	suite.Run("success", func() {
		suite.counterMock.On("CurrentValue", mock.Anything).Once().Return(int64(42), nil)

		n, err := suite.svc.CounterValue(context.Background())

		suite.NoError(err)
		suite.Equal(int64(42), n)
	})

	suite.Run("corrupt", func() {
		suite.counterMock.On("CurrentValue", mock.Anything).Once().Return(int64(0), counter.ErrCorrupt)

		_, err := suite.svc.CounterValue(context.Background())

		suite.ErrorIs(err, counter.ErrCorrupt)
	})
}

func TestURLServiceTestSuite(t *testing.T) {
	suite.Run(t, new(URLServiceTestSuite))
}
