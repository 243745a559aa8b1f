package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"editorServer/backend/config"
	"editorServer/backend/internal/cache"
	"editorServer/backend/internal/events"
	"editorServer/backend/internal/httpapi/handlers"
	"editorServer/backend/internal/httpapi/middleware"
	"editorServer/backend/internal/session"
	"editorServer/backend/internal/store"
	"editorServer/backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}
	log.Printf("config: port=%d redis=%v kafka=%v mysql=%t auth=%t",
		cfg.Running.Port, cfg.Redis.Addrs, cfg.Kafka.Brokers, cfg.Mysql.DSN != "", cfg.Auth.Secret != "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := session.Options{PresenceTTL: cfg.Redis.PresenceTTL}
	var (
		presenceCache cache.PresenceCache
		recentFiles   handlers.RecentFiles
		fileLookup    handlers.FileLookup
		snapshots     handlers.SnapshotLookup
	)

	// 旁路依赖：地址为空就不启用
	if len(cfg.Redis.Addrs) > 0 {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		presenceCache = cache.NewRedisPresence(rdb)
		opts.Presence = presenceCache
	}

	if cfg.Mysql.DSN != "" {
		db, err := sql.Open("mysql", cfg.Mysql.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		snapshotStore := store.NewSnapshotStore(db)
		if err := snapshotStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare snapshot table: %v", err)
		}
		opts.Snapshots = snapshotStore
		snapshots = snapshotStore

		gormDB, err := store.InitMySQL(cfg.Mysql.DSN)
		if err != nil {
			log.Fatalf("Failed to init gorm: %v", err)
		}
		documentStore := store.NewDocumentStore(gormDB)
		opts.Files = documentStore
		recentFiles = documentStore
		fileLookup = documentStore
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := sarama.NewConfig()
		// SyncProducer 必须开启 Return.Successes
		kafkaCfg.Producer.Return.Successes = true
		kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
		producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
		if err != nil {
			log.Fatalf("Failed to connect kafka: %v", err)
		}
		defer producer.Close()

		dispatcher := events.NewKafkaDispatcher(
			producer,
			cfg.Kafka.Topic,
			events.NewSemaphoreControl(cfg.Kafka.MaxInFlight),
			events.KafkaDispatcherOptions{
				QueueSize:   cfg.Kafka.QueueSize,
				Workers:     cfg.Kafka.Workers,
				MaxRetry:    cfg.Kafka.MaxRetry,
				BaseBackoff: cfg.Kafka.BaseBackoff,
				MaxBackoff:  cfg.Kafka.MaxBackoff,
			},
		)
		// 先于 producer.Close 执行，把队列里的事件发完
		defer dispatcher.Close()
		opts.Events = dispatcher
	}

	registry := session.NewRegistry()
	svc := session.NewService(registry, opts)
	manager := ws.NewManager(svc, events.NewSemaphoreControl(cfg.Websocket.MaxSessions))

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	editor := r.Group("/editor")
	editor.GET("/healthz", handlers.Healthz)

	authed := editor.Group("")
	if cfg.Auth.Secret != "" {
		authed.Use(middleware.AuthMiddleware([]byte(cfg.Auth.Secret)))
	} else {
		log.Printf("auth secret empty, websocket and session endpoints are unauthenticated")
	}
	authed.GET("/ws", manager.WebSocketConnect)
	var online handlers.PresenceLister
	if presenceCache != nil {
		online = presenceCache
	}
	authed.GET("/sessions", handlers.Sessions(registry, online))
	authed.GET("/documents/recent", handlers.RecentDocuments(recentFiles))
	authed.GET("/documents/info", handlers.DocumentInfo(fileLookup, snapshots))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Running.Port),
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("editor server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Running.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("editor server stopped: %v", err)
		return
	}
	log.Printf("editor server stopped")
}
