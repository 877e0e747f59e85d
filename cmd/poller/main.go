package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/asrith4444/clover-poller/internal/reconcile"
	"github.com/asrith4444/clover-poller/internal/worker"
	"github.com/asrith4444/clover-poller/pkg/config"
	"github.com/asrith4444/clover-poller/pkg/infra/clover"
	"github.com/asrith4444/clover-poller/pkg/infra/mysql"
	"github.com/asrith4444/clover-poller/pkg/infra/redis"
	"github.com/asrith4444/clover-poller/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/poller.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	log.Println("========================================")
	log.Println("  Clover Poller Starting...")
	log.Println("========================================")

	// 1. 加载 .env（不存在则忽略，密钥可由环境注入）
	_ = godotenv.Load()

	// 2. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	log.Printf("Config loaded: %s, env: %s, log_level: %s\n", cfg.App.Name, cfg.App.Env, cfg.App.LogLevel)

	// 3. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// 4. 初始化外部依赖
	cloverClient := clover.NewClient(cfg.Clover.BaseURL, cfg.Clover.MerchantID, cfg.Clover.APIToken, cfg.Clover.PageSize)

	orderDAO, err := mysql.NewOrderDAO(cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("Failed to create OrderDAO: %v", err)
	}
	defer orderDAO.Close()

	pubsub, err := redis.NewPubSub(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel)
	if err != nil {
		log.Fatalf("Failed to create Redis PubSub: %v", err)
	}
	defer pubsub.Close()

	// 5. 组装 Reconciler 与 Poller
	reconciler := reconcile.NewReconciler(cloverClient, orderDAO, pubsub, &reconcile.Options{
		PageSize:    cfg.Clover.PageSize,
		Window:      cfg.Poller.Window,
		ItemKey:     cfg.Poller.ItemKey,
		IgnoreItems: cfg.Poller.IgnoreItems,
		Event:       cfg.Redis.Event,
	}, zapLogger)

	poller, err := worker.NewPoller(reconciler, &cfg.Poller, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create poller: %v", err)
	}

	// 6. 启动 Poller（goroutine）
	go poller.Start()

	log.Println("Poller started. Press Ctrl+C to shutdown.")

	// 7. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Println("========================================")
	log.Printf("  Received signal: %v\n", sig)
	log.Println("  Shutting down Poller...")
	log.Println("========================================")

	// 8. 优雅关闭
	poller.Shutdown()

	fmt.Println("========================================")
	fmt.Println("  Poller exited gracefully")
	fmt.Println("========================================")
}
