package main

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/kjlinux/pourier-back/internal/catalog"
	"github.com/kjlinux/pourier-back/internal/events"
	"github.com/kjlinux/pourier-back/internal/handler"
	"github.com/kjlinux/pourier-back/internal/payment"
	"github.com/kjlinux/pourier-back/internal/repository"
	"github.com/kjlinux/pourier-back/internal/service"
	"github.com/kjlinux/pourier-back/pkg/config"
	"github.com/kjlinux/pourier-back/pkg/metrics"
	"github.com/kjlinux/pourier-back/pkg/middleware"
	pkgtls "github.com/kjlinux/pourier-back/pkg/tls"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	tlsConfig := &pkgtls.TLSConfig{}
	if err := envconfig.Process("", tlsConfig); err != nil {
		logger.Fatal("Failed to load TLS config", zap.Error(err))
	}

	logger.Info("Service configuration",
		zap.String("port", cfg.Port),
		zap.String("kafka_brokers", cfg.KafkaBrokers),
		zap.String("gateway_url", cfg.PaymentGatewayURL),
		zap.Bool("tls_enabled", tlsConfig.Enabled),
		zap.Bool("internal_tls", os.Getenv("INTERNAL_TLS_ENABLED") == "true"))

	// Initialize components
	dynamoClient, err := repository.NewDynamoDBClient(cfg)
	if err != nil {
		log.Fatal("Failed to create DynamoDB client:", err)
	}

	dispatcher := events.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.NotificationTopic, logger)
	defer dispatcher.Close()

	gateway := payment.NewHTTPGateway(cfg.PaymentGatewayURL, time.Duration(cfg.PaymentTimeoutSec)*time.Second, logger)

	orderRepo := repository.NewOrderRepository(dynamoClient, cfg.OrderTableName)
	profileRepo := repository.NewProfileRepository(dynamoClient, cfg.ProfileTableName)
	photoStore := catalog.NewDynamoPhotoStore(dynamoClient, cfg.CatalogTableName)

	orderService := service.NewOrderService(orderRepo, photoStore, gateway, dispatcher, cfg.InvoiceBaseURL, logger)
	profileService := service.NewProfileService(profileRepo, dispatcher, logger)

	orderHandler := handler.NewOrderHandler(orderService, logger)
	webhookHandler := handler.NewWebhookHandler(orderService, logger)
	profileHandler := handler.NewProfileHandler(profileService, logger)

	srvMetrics := metrics.NewServerMetrics("marketplace")

	// Setup Gin Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Identity())
	router.Use(srvMetrics.Middleware())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", orderHandler.CreateOrder)
		v1.GET("/orders/:id", orderHandler.GetOrder)
		v1.POST("/orders/:id/pay", orderHandler.PayOrder)
		v1.POST("/orders/:id/cancel", orderHandler.CancelOrder)
		v1.POST("/orders/:id/fulfill", orderHandler.FulfillOrder)
		v1.POST("/orders/:id/refund", orderHandler.RefundOrder)
		v1.POST("/payments/callback", webhookHandler.PaymentCallback)
		v1.GET("/photographers/:id", profileHandler.GetProfile)
		v1.POST("/photographers/:id/approve", profileHandler.Approve)
		v1.POST("/photographers/:id/reject", profileHandler.Reject)
		v1.GET("/health", func(c *gin.Context) {
			status := gin.H{
				"status":  "healthy",
				"service": "marketplace",
				"port":    cfg.Port,
				"tls":     tlsConfig.Enabled,
			}
			if err := dispatcher.HealthCheck(); err != nil {
				status["kafka"] = "unhealthy"
				c.JSON(503, status)
				return
			}
			status["kafka"] = "healthy"
			c.JSON(200, status)
		})
	}

	var wg sync.WaitGroup
	servers := []*http.Server{}

	// HTTP Server for ALB (port 8080)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	servers = append(servers, httpServer)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// mTLS Server for service-to-service (port 8443)
	if os.Getenv("INTERNAL_TLS_ENABLED") == "true" {
		tlsCfg, err := pkgtls.LoadTLSConfig(tlsConfig, logger)
		if err != nil {
			logger.Error("Failed to load TLS config", zap.Error(err))
		} else {
			httpsServer := &http.Server{
				Addr:      ":8443",
				Handler:   router,
				TLSConfig: tlsCfg,
			}
			servers = append(servers, httpsServer)

			wg.Add(1)
			go func() {
				defer wg.Done()
				logger.Info("Starting mTLS server for internal communication", zap.String("port", "8443"))
				if err := httpsServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
					logger.Error("mTLS server failed", zap.Error(err))
				}
			}()

			// Watch for certificate updates
			go pkgtls.WatchCertificates(tlsConfig, func(newCfg *tls.Config) error {
				httpsServer.TLSConfig = newCfg
				logger.Info("TLS configuration reloaded")
				return nil
			}, logger)
		}
	}

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}

	wg.Wait()
	logger.Info("All servers stopped")
}
