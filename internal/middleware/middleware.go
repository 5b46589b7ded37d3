package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/DocChat/internal/adapter/utils"
	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// Chain runs every API request through trace injection, bearer auth and the per-IP rate limiter.
type Chain struct {
	settings config.ServerSettings
	limiter  *IPRateLimiter
	logger   *logger_i.Logger
}

func NewChain(settings config.ServerSettings) *Chain {
	if settings.RateLimitPerSecond <= 0 {
		settings.RateLimitPerSecond = config.RATE_LIMIT_PER_SECOND
	}
	if settings.RateLimitBurst <= 0 {
		settings.RateLimitBurst = config.BURST_RATE_LIMIT_PER_SECOND
	}
	c := &Chain{
		settings: settings,
		limiter:  NewIPRateLimiter(rate.Limit(settings.RateLimitPerSecond), settings.RateLimitBurst),
		logger:   logger_i.NewLogger("middleware"),
	}
	if settings.NoAuthBypass {
		c.logger.Warn("bearer authentication is disabled")
	} else if settings.AuthToken == "" {
		c.logger.Error("no auth token configured, every API request will be rejected")
	}
	return c
}

func (c *Chain) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := c.processRequest(requestResponseStruct{req: r, writer: rec})

		if !re.badRequest.isBadRequest {
			next(rec, re.req)
		}

		path := utils.GetChiRoutePattern(re.req)
		if path == "" {
			path = r.URL.Path
		}
		metrics.HttpRequestsTotal.WithLabelValues(path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

// processRequest stops at the first failing step and writes its rejection.
func (c *Chain) processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = c.logger
	re = injectTrace(re)
	if !handleBadRequest(re) {
		return re
	}
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	re = c.authenticate(re)
	if !handleBadRequest(re) {
		return re //stop if auth fails
	}
	re = c.rateLimiter(re)
	handleBadRequest(re)
	return re
}
