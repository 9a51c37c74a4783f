package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/models"
	"github.com/kwtradetech/trading_backend/models/reports"
	"github.com/kwtradetech/trading_backend/utils"
	"github.com/kwtradetech/trading_backend/workflow"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("trading-backend")

type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func main() {
	godotenv.Load()

	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the startup probe passes. Until the DB is
	// ready, app endpoints return 503.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), cid)
		// identity headers are stamped by the auth gateway in front of us
		if v := c.GetHeader("x-user-id"); v != "" {
			if userId, err := strconv.Atoi(v); err == nil && userId > 0 {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if v := c.GetHeader("x-user-name"); v != "" {
			ctx = utils.SetUserNameInContext(ctx, v)
		}
		if v := c.GetHeader("x-branch-id"); v != "" {
			if branchId, err := strconv.Atoi(v); err == nil && branchId > 0 {
				ctx = utils.SetBranchIdInContext(ctx, branchId)
			}
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header("x-correlation-id", cid)
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production require an explicit allowlist; in development allow all.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting.
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDRESS")})
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r, logger)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Conditional writes assume at least read-committed isolation.
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func registerRoutes(r *gin.Engine, logger *logrus.Logger) {
	// master data
	r.POST("/items", createItemHandler)
	r.GET("/items", listItemsHandler)
	r.POST("/parties", createPartyHandler)
	r.GET("/parties", listPartiesHandler)
	r.POST("/branches", createBranchHandler)
	r.GET("/branches", listBranchesHandler)

	// transactional documents
	r.POST("/purchase-orders", createPurchaseOrderHandler)
	r.GET("/purchase-orders/:id", getPurchaseOrderHandler)
	r.DELETE("/purchase-orders/:id", deletePurchaseOrderHandler)
	r.POST("/sale-orders", createSaleOrderHandler)
	r.GET("/sale-orders/:id", getSaleOrderHandler)
	r.DELETE("/sale-orders/:id", deleteSaleOrderHandler)
	r.POST("/return-orders", createReturnOrderHandler)
	r.GET("/return-orders/:id", getReturnOrderHandler)
	r.DELETE("/return-orders/:id", deleteReturnOrderHandler)
	r.POST("/inventory-adjustments", createInventoryAdjustmentHandler)
	r.GET("/inventory-adjustments/:id", getInventoryAdjustmentHandler)
	r.DELETE("/inventory-adjustments/:id", deleteInventoryAdjustmentHandler)

	// stock reports
	r.GET("/reports/stock-balance", stockBalanceHandler)
	r.GET("/reports/stock-balance/export", stockBalanceExportHandler)
	r.GET("/reports/low-stock", lowStockHandler)
	r.GET("/reports/stock-aging", stockAgingHandler)
	r.GET("/reports/stock-aging/export", stockAgingExportHandler)

	// imei tracker
	r.GET("/imeis/search", searchImeisHandler)
	r.GET("/imeis/:imei", getImeiHandler)
	r.GET("/imeis/:imei/history", getImeiHistoryHandler)

	// landed cost vouchers
	r.POST("/landed-cost-vouchers", createVoucherHandler)
	r.GET("/landed-cost-vouchers/pending", pendingPayablesHandler)
	r.GET("/landed-cost-vouchers/:id", getVoucherHandler)
	r.PUT("/landed-cost-vouchers/:id", updateVoucherHandler)
	r.DELETE("/landed-cost-vouchers/:id", deleteVoucherHandler)
	r.POST("/landed-cost-vouchers/:id/lanes/:lane/pay", payVoucherLaneHandler)

	// party settlements
	r.GET("/party-settlements", listSettlementsHandler)
	r.GET("/party-settlements/pending", pendingSettlementsByPartyHandler)
	r.POST("/party-settlements", createSettlementHandler)
	r.GET("/party-settlements/:id", getSettlementHandler)
	r.POST("/party-settlements/:id/finalize", finalizeSettlementHandler(logger))

	// ops tooling (admin only)
	r.POST("/internal/ops/imei-reconcile", imeiReconcileHandler(logger))
}

// customErrorLogger logs only requests that accumulated gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// RateLimitMiddleware does fixed-window counting per client IP in Redis.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "rate:" + c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func imeiReconcileHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Fix bool `json:"fix"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				bindError(c, err)
				return
			}
		}
		result, err := workflow.ReconcileImeiProjections(c.Request.Context(), logger, body.Fix)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func finalizeSettlementHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settlement id"})
			return
		}
		var body struct {
			MoneyAccountId int    `json:"money_account_id" binding:"required"`
			Notes          string `json:"notes"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			bindError(c, err)
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), "settlement.finalize")
		defer span.End()
		result, err := workflow.AtomicFinalizeSettlement(ctx, logger, id, body.MoneyAccountId, body.Notes)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if result == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "settlement not found"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// stockAgingExportHandler streams the aging report as an xlsx attachment.
func stockAgingExportHandler(c *gin.Context) {
	filter, err := parseAgingFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, err := reports.GetStockAging(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=stock-aging.xlsx")
	if err := reports.WriteStockAgingExcel(c.Writer, report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func stockBalanceExportHandler(c *gin.Context) {
	records, err := reports.GetStockBalance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=stock-balance.xlsx")
	if err := reports.WriteStockBalanceExcel(c.Writer, records); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
