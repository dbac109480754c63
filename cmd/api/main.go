package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xxz807/docbank/backend/internal/ledger/adapter/repo"
	"github.com/xxz807/docbank/backend/internal/ledger/api"
	"github.com/xxz807/docbank/backend/internal/ledger/service"
	"github.com/xxz807/docbank/backend/internal/platform/database"
	"github.com/xxz807/docbank/backend/internal/platform/docstore"
	"github.com/xxz807/docbank/backend/internal/platform/logger"
	"github.com/xxz807/docbank/backend/internal/platform/server"
)

func main() {
	// 1. 加载配置 (.env 可覆盖 yaml，本地开发放 DSN 用)
	_ = godotenv.Load()
	viper.SetConfigFile("configs/config.yaml")
	viper.SetEnvPrefix("DOCBANK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %s", err)
	}

	// 2. 初始化基础设施 (Infra)
	// Logger
	appLogger := logger.NewLogger(viper.GetString("server.mode"))

	// Document store：长生命周期实例，一次构建到处注入
	var store docstore.Store
	switch backend := viper.GetString("store.backend"); backend {
	case "postgres":
		db := database.NewPostgresDB(
			viper.GetString("store.dsn"),
			viper.GetInt("store.max_idle_conns"),
			viper.GetInt("store.max_open_conns"),
		)
		pg, err := docstore.NewPostgresStore(db)
		if err != nil {
			appLogger.Fatal("Document store init failed", zap.Error(err))
		}
		store = pg
	case "memory":
		store = docstore.NewMemoryStore()
	default:
		appLogger.Fatal("Unknown store backend", zap.String("backend", backend))
	}

	// 3. 依赖注入 (Wiring)
	accountRepo := repo.NewAccountRepo(store)
	txLog := repo.NewTransactionLog(store)
	ledgerSvc := service.NewLedgerService(accountRepo, txLog, appLogger, viper.GetInt("ledger.retry_budget"))
	ledgerHandler := api.NewLedgerHandler(ledgerSvc)

	// 4. 初始化 Server
	srv := server.NewServer(
		appLogger,
		viper.GetString("server.port"),
		viper.GetString("server.mode"),
		ledgerHandler,
	)

	// 5. 启动服务 + 优雅停机
	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server startup failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", zap.Error(err))
	}
}
