package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/endee416/vendorpay/internal/api"
	"github.com/endee416/vendorpay/internal/cache"
	"github.com/endee416/vendorpay/internal/config"
	"github.com/endee416/vendorpay/internal/events"
	"github.com/endee416/vendorpay/internal/gateway"
	"github.com/endee416/vendorpay/internal/identity"
	"github.com/endee416/vendorpay/internal/logger"
	"github.com/endee416/vendorpay/internal/service"
	"github.com/endee416/vendorpay/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New("vendorpay-api", cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer zlog.Sync()

	db, err := store.New(cfg.DBSource)
	if err != nil {
		zlog.Fatal("unable to connect to database", zap.Error(err))
	}
	defer db.Close()

	ledger := store.NewLedgerStore(db.Db)
	audit := store.NewAuditStore(db.Db)
	orders := store.NewOrderStore(db.Db)
	gw := gateway.NewClient(cfg.GatewayURL, cfg.GatewaySecret, zlog)

	payouts := service.NewPayoutService(ledger, gw, audit, identity.TokenMatcher{}, zlog)
	refunds := service.NewRefundService(gw, orders, zlog)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		payouts.WithResolutionCache(cache.NewResolutionCache(rdb, cfg.ResolutionTTL))
		zlog.Info("resolution cache enabled", zap.String("addr", cfg.RedisAddr))
	}
	if cfg.KafkaBrokers != "" {
		writer := &kafka.Writer{
			Addr:     kafka.TCP(strings.Split(cfg.KafkaBrokers, ",")...),
			Balancer: &kafka.LeastBytes{},
		}
		defer writer.Close()
		publisher := events.NewKafkaPublisher(writer)
		payouts.WithPublisher(publisher)
		refunds.WithPublisher(publisher)
		zlog.Info("event publishing enabled", zap.String("brokers", cfg.KafkaBrokers))
	}

	handler := api.NewHandler(payouts, refunds, ledger, zlog)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(api.Auth(cfg.AuthSecret))
	apiV1.HandleFunc("/payouts", handler.CreatePayoutHandler).Methods("POST")
	apiV1.HandleFunc("/vendors/{id}/balance", handler.GetBalanceHandler).Methods("GET")

	ops := apiV1.PathPrefix("/refunds").Subrouter()
	ops.Use(api.RequireRole(api.RoleOperator))
	ops.HandleFunc("", handler.CreateRefundHandler).Methods("POST")

	zlog.Info("server starting", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
