// Package gateway exposes the ledger operations over HTTP. Each call
// names an operation, carries the binary argument buffer as the request
// body, and receives the result buffer back; caller identity and
// attached payment travel as headers.
package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"subscription-ledger/internal/common/config"
	"subscription-ledger/internal/common/database"
	lederrors "subscription-ledger/internal/common/errors"
	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/common/metrics"
	"subscription-ledger/internal/ledger/callctx"
	"subscription-ledger/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Headers carrying the execution context.
const (
	callerHeader = "X-Caller-Address"
	coinsHeader  = "X-Attached-Coins"
)

type Server struct {
	cfg        config.ServerConfig
	engine     *gin.Engine
	dispatcher *Dispatcher
	redis      *database.RedisClient
	catalog    *registry.OperationRegistry
	log        logger.Logger
	httpServer *http.Server
}

func NewServer(cfg config.ServerConfig, dispatcher *Dispatcher, redis *database.RedisClient, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestID())
	engine.Use(requestLogger(log))
	engine.Use(callMetrics())

	s := &Server{
		cfg:        cfg,
		engine:     engine,
		dispatcher: dispatcher,
		redis:      redis,
		log:        log.WithFields(map[string]interface{}{"component": "gateway"}),
	}

	engine.POST("/v1/call/:operation", s.handleCall)
	engine.GET("/v1/operations", s.handleOperations)
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// WithCatalog attaches operation metadata served alongside the name list.
func (s *Server) WithCatalog(reg *registry.OperationRegistry) *Server {
	s.catalog = reg
	return s
}

func (s *Server) handleCall(c *gin.Context) {
	op := c.Param("operation")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxRequestBody)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"code": "REQUEST_TOO_LARGE", "message": "request body exceeds limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "unreadable body"})
		return
	}

	call, err := s.callContext(c)
	if err != nil {
		s.writeFault(c, op, err)
		return
	}

	result, err := s.dispatcher.Dispatch(c.Request.Context(), op, call, body)
	if err != nil {
		s.writeFault(c, op, err)
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", result)
}

func (s *Server) handleOperations(c *gin.Context) {
	resp := gin.H{"operations": s.dispatcher.Operations()}
	if s.catalog != nil {
		resp["catalog"] = s.catalog.Operations
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.redis.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) callContext(c *gin.Context) (callctx.Call, error) {
	call := callctx.Call{
		Caller: c.GetHeader(callerHeader),
		Now:    time.Now().UTC(),
	}

	if raw := c.GetHeader(coinsHeader); raw != "" {
		coins, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return callctx.Call{}, lederrors.NewInvalidArgument("attachedCoins", raw)
		}
		call.Coins = coins
	}
	return call, nil
}

func (s *Server) writeFault(c *gin.Context, op string, err error) {
	if errors.Is(err, ErrUnknownOperation) {
		c.JSON(http.StatusNotFound, gin.H{"code": "UNKNOWN_OPERATION", "message": err.Error()})
		return
	}

	var fault *lederrors.Fault
	if errors.As(err, &fault) {
		metrics.LedgerCallFailures.WithLabelValues(op, string(fault.Code)).Inc()
		c.JSON(lederrors.HTTPStatus(fault.Code), gin.H{
			"code":    fault.Code,
			"message": fault.Message,
		})
		return
	}

	metrics.LedgerCallFailures.WithLabelValues(op, string(lederrors.CodeStorageFailure)).Inc()
	s.log.Error("operation failed", map[string]interface{}{
		"operation": op,
		"error":     err.Error(),
	})
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    lederrors.CodeStorageFailure,
		"message": "internal error",
	})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.engine,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Millisecond,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
