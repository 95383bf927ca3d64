package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pasal-be/internal/cart"
	"pasal-be/internal/checkout"
	"pasal-be/internal/config"
	"pasal-be/internal/db"
	"pasal-be/internal/logger"
	"pasal-be/internal/middleware"
	"pasal-be/internal/order"
	"pasal-be/internal/payment"
	"pasal-be/internal/transport"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	gateway := payment.NewKhaltiGateway(cfg.KhaltiSecretKey, cfg.KhaltiBaseURL, cfg.FrontendURL)

	checkoutRepo := checkout.NewRepository(database)
	checkoutSvc := checkout.NewService(checkoutRepo, gateway)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cartRepo := cart.NewRepository(database)
	clearer := cart.NewClearer(cartRepo)
	clearer.Start(ctx)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, checkoutRepo, clearer)

	auth := middleware.NewAuth(cfg.JWTSecret)
	handler := transport.NewHandler(checkoutSvc, orderSvc)
	router := transport.NewRouter(handler, auth)

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: router}

	go func() {
		logger.L().Info("server running", zap.String("port", cfg.AppPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("server shutdown failed", zap.Error(err))
	}

	// The clearer worker exits on ctx cancellation; wait for the in-flight
	// cart clear before letting the db handle close.
	clearer.Wait()
}
