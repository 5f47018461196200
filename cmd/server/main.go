// Package main 是 HTTP 服务的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hackrx-go/internal/app"
	"hackrx-go/internal/config"
	"hackrx-go/internal/handler"
	"hackrx-go/internal/middleware"
	"hackrx-go/pkg/log"

	"github.com/gin-gonic/gin"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	// 1. 初始化配置，HACKRX_CONFIG 可指定其他路径
	configPath := os.Getenv("HACKRX_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 组装流水线
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	application, err := app.New(rootCtx, &cfg)
	if err != nil {
		log.Fatal("初始化失败", err)
	}
	defer application.Close()

	// 4. 启动后台 Kafka 预热消费者（仅在配置了 ingest_topic 时）
	application.StartConsumer(rootCtx)

	// 5. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	qaHandler := handler.NewQAHandler(application.QA, cfg.Server.RequestTimeout)
	documentHandler := handler.NewDocumentHandler(application.Documents)
	r.GET("/", handler.Health)
	hackrx := r.Group("/hackrx")
	hackrx.Use(middleware.BearerAuth(application.Verifier))
	{
		hackrx.POST("/run", qaHandler.Run)
		hackrx.GET("/documents/:fingerprint", documentHandler.GetDocument)
		hackrx.DELETE("/documents/:fingerprint", documentHandler.DeleteDocument)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 停止消费者，正在进行的请求最多再等待 10 秒
	cancel()
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP 服务器关闭失败", err)
	}
	log.Info("服务已优雅关闭")
}
