package http

import (
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/link-shortener/internal/counter"
	"github.com/vadimbarashkov/link-shortener/internal/jobs"
	"github.com/vadimbarashkov/link-shortener/pkg/response"
)

func (suite *HandlersTestSuite) TestGetCacheStats() {
	const path = "/admin/cache/stats"

	suite.Run("success", func() {
		suite.urlSvcMock.On("CacheHitRate", mock.Anything).Once().Return(0.8, nil)

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("status", "healthy")
		resp.HasValue("hit_rate", 0.8)
		resp.HasValue("hit_rate_percentage", "80.00%")
	})

	suite.Run("error", func() {
		suite.urlSvcMock.On("CacheHitRate", mock.Anything).Once().Return(0.0, errors.New("unknown error"))

		suite.e.GET(path).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object().
			HasValue("status", response.StatusError)
	})
}

func (suite *HandlersTestSuite) TestResetCacheStats() {
	const path = "/admin/cache/stats"

	suite.Run("success", func() {
		suite.urlSvcMock.On("ResetCacheStats", mock.Anything).Once().Return(nil)

		suite.e.DELETE(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("status", response.StatusSuccess)
	})

	suite.Run("error", func() {
		suite.urlSvcMock.On("ResetCacheStats", mock.Anything).Once().Return(errors.New("unknown error"))

		suite.e.DELETE(path).
			Expect().
			Status(http.StatusInternalServerError)
	})
}

func (suite *HandlersTestSuite) TestHealth() {
	const path = "/admin/health"

	suite.Run("healthy", func() {
		suite.urlSvcMock.On("CacheHitRate", mock.Anything).Once().Return(0.9, nil)

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("status", "UP")
		resp.ContainsKey("timestamp")
		resp.Value("cache").Object().
			HasValue("hit_rate", 0.9).
			HasValue("status", "HEALTHY")
	})

	suite.Run("warning at threshold", func() {
		suite.urlSvcMock.On("CacheHitRate", mock.Anything).Once().Return(0.5, nil)

		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("status", "UP").
			Value("cache").Object().
			HasValue("status", "WARNING")
	})

	suite.Run("configured threshold", func() {
		server := httptest.NewServer(NewRouter(suite.logger, suite.urlSvcMock, suite.sweeperMock, 0.8))
		defer server.Close()

		e := httpexpect.Default(suite.T(), server.URL)

		suite.urlSvcMock.On("CacheHitRate", mock.Anything).Once().Return(0.7, nil)

		e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("cache").Object().
			HasValue("status", "WARNING")

		suite.urlSvcMock.On("CacheHitRate", mock.Anything).Once().Return(0.85, nil)

		e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("cache").Object().
			HasValue("status", "HEALTHY")
	})

	suite.Run("stats unreadable", func() {
		suite.urlSvcMock.On("CacheHitRate", mock.Anything).Once().Return(0.0, errors.New("connection refused"))

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusServiceUnavailable).
			JSON().Object()

		resp.HasValue("status", "DOWN")
		resp.HasValue("error", "connection refused")
		resp.NotContainsKey("cache")
	})
}

func (suite *HandlersTestSuite) TestGetCounter() {
	const path = "/admin/counter"

	suite.Run("success", func() {
		suite.urlSvcMock.On("CounterValue", mock.Anything).Once().Return(int64(42), nil)

		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("value", 42)
	})

	suite.Run("error", func() {
		suite.urlSvcMock.On("CounterValue", mock.Anything).Once().Return(int64(0), counter.ErrCorrupt)

		suite.e.GET(path).
			Expect().
			Status(http.StatusInternalServerError)
	})
}

func (suite *HandlersTestSuite) TestSweep() {
	const path = "/admin/sweep"

	suite.Run("success", func() {
		suite.sweeperMock.
			On("Sweep", mock.Anything).
			Once().
			Return(jobs.SweepReport{Expired: 2, Evicted: 1, EvictFailures: 1, Deleted: 2}, nil)

		resp := suite.e.POST(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("expired", 2)
		resp.HasValue("evicted", 1)
		resp.HasValue("evict_failures", 1)
		resp.HasValue("deleted", 2)
	})

	suite.Run("in progress", func() {
		suite.sweeperMock.
			On("Sweep", mock.Anything).
			Once().
			Return(jobs.SweepReport{}, jobs.ErrSweepInProgress)

		suite.e.POST(path).
			Expect().
			Status(http.StatusConflict)
	})

	suite.Run("error", func() {
		suite.sweeperMock.
			On("Sweep", mock.Anything).
			Once().
			Return(jobs.SweepReport{}, errors.New("unknown error"))

		suite.e.POST(path).
			Expect().
			Status(http.StatusInternalServerError)
	})
}
