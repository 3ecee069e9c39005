package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"callqa/internal/health"
	"callqa/internal/metrics"
	"callqa/internal/qa"
	"callqa/pkg/errors"
)

// qaService is the slice of the QA service the handlers consume.
type qaService interface {
	UploadText(ctx context.Context, text string) (*qa.UploadReceipt, error)
	UploadFile(ctx context.Context, path, prefix string) (*qa.UploadReceipt, error)
	Ask(ctx context.Context, query string, opts qa.AskOptions) (*qa.AskResult, error)
}

type reporter interface {
	PerformanceReport(ctx context.Context) *metrics.PerformanceReport
	UsageInsights(ctx context.Context) *metrics.UsageInsights
}

type healthChecker interface {
	Check(ctx context.Context) *health.Report
}

type searchRequest struct {
	Query      string `json:"query" binding:"required"`
	NumResults int    `json:"num_results"`
	Source     string `json:"source"`
	DaysBack   int    `json:"days_back"`
	Synthesize bool   `json:"synthesize"`
}

const webSearchResults = 10

func newRouter(svc qaService, reports reporter, checker healthChecker, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage))
	})

	api := router.Group("/api")
	{
		api.POST("/upload-text", func(c *gin.Context) {
			var req struct {
				Text string `json:"text" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			receipt, err := svc.UploadText(c.Request.Context(), req.Text)
			if err != nil {
				abortWithError(c, log, "upload text", err)
				return
			}
			c.JSON(http.StatusOK, receipt)
		})

		api.POST("/upload-files", func(c *gin.Context) {
			form, err := c.MultipartForm()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			files := form.File["files"]
			if len(files) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
				return
			}

			// Saved under their original names so episode naming and source
			// descriptions reflect what the user uploaded.
			dir, err := os.MkdirTemp("", "callqa_upload")
			if err != nil {
				abortWithError(c, log, "upload files", err)
				return
			}
			defer os.RemoveAll(dir)

			receipt := &qa.BatchReceipt{Total: len(files)}
			for _, fh := range files {
				dst := filepath.Join(dir, filepath.Base(fh.Filename))
				if err := c.SaveUploadedFile(fh, dst); err != nil {
					receipt.Failed++
					receipt.Errors = append(receipt.Errors, fh.Filename+": "+err.Error())
					continue
				}
				r, err := svc.UploadFile(c.Request.Context(), dst, "web_")
				if err != nil {
					receipt.Failed++
					receipt.Errors = append(receipt.Errors, fh.Filename+": "+err.Error())
					continue
				}
				receipt.Succeeded++
				receipt.Receipts = append(receipt.Receipts, *r)
			}
			c.JSON(http.StatusOK, receipt)
		})

		api.POST("/search", func(c *gin.Context) {
			var req searchRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			numResults := req.NumResults
			if numResults < 1 {
				numResults = webSearchResults
			}
			result, err := svc.Ask(c.Request.Context(), req.Query, qa.AskOptions{
				NumResults:   numResults,
				SourceFilter: req.Source,
				DaysBack:     req.DaysBack,
				Synthesize:   req.Synthesize,
			})
			if err != nil {
				abortWithError(c, log, "search", err)
				return
			}
			c.JSON(http.StatusOK, result)
		})

		api.GET("/reports/performance", func(c *gin.Context) {
			c.JSON(http.StatusOK, reports.PerformanceReport(c.Request.Context()))
		})

		api.GET("/reports/insights", func(c *gin.Context) {
			c.JSON(http.StatusOK, reports.UsageInsights(c.Request.Context()))
		})

		api.GET("/health", func(c *gin.Context) {
			report := checker.Check(c.Request.Context())
			status := http.StatusOK
			if !report.Healthy {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, report)
		})
	}

	return router
}

// abortWithError maps service failures onto HTTP statuses: user input
// problems are 400, everything else 500.
func abortWithError(c *gin.Context, log *zap.Logger, op string, err error) {
	if errors.IsErrorType(err, errors.ErrorTypeValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Error("request failed", zap.String("operation", op), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
