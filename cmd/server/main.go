package main

import (
	"context"
	"encoding/gob"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/omovies/internal/config"
	"github.com/user/omovies/internal/handler"
	"github.com/user/omovies/internal/logger"
	"github.com/user/omovies/internal/middleware"
	"github.com/user/omovies/internal/model"
	"github.com/user/omovies/internal/router"
	"github.com/user/omovies/internal/service"
	"github.com/user/omovies/internal/store"
	"github.com/user/omovies/internal/utils"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（可选）")
	flag.Parse()

	// 注册 Session 模型
	gob.Register(model.SessionUser{})

	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		fmt.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Path:   cfg.LogPath,
	})
	defer log.Close()

	// 远程电影 API
	client, err := utils.NewHTTPClient(cfg.APIBaseURL, cfg.APITimeout, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化 API 客户端失败")
	}
	movies := service.NewMovieService(client)
	auth := service.NewAuthService(client)

	// 会话状态容器与提示消息
	registry := store.NewRegistry(movies, cfg.SessionTTL, log.Logger)
	notices := store.NewNotices(cfg.NoticeCapacity, cfg.NoticeTTL)

	// 初始化 Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 设置 Session 中间件
	sessionStore := middleware.NewSessionStore(cfg.AppSecret, cfg.SessionTTL, cfg.IsProduction())
	r.Use(sessions.Sessions("omovies", sessionStore))

	// 加载模板（使用 multitemplate 解决继承问题）
	r.HTMLRender = router.LoadTemplates("./web/templates")

	// 静态文件
	r.Static("/static", "./web/static")

	// 中间件
	r.Use(middleware.Logger(log.WithComponent("http")))

	// 初始化 Handler
	h := handler.NewHandler(cfg, movies, auth, registry, notices, log.Logger)

	// 启动定时清理任务
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	cleanupSvc := service.NewCleanupService(cfg.CleanupInterval, map[string]service.Sweeper{
		"sessions": registry,
		"notices":  service.SweeperFunc(notices.RemoveExpired),
	}, log.Logger)
	cleanupSvc.Start(ctx)

	// 注册路由
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   cfg.APITimeout + 10*time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		log.Info().Str("addr", "http://localhost:"+cfg.Port).Str("api", cfg.APIBaseURL).Msg("服务器启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("正在关闭服务器...")
	stop()

	// 等待进行中的 API 调用结束
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("服务器强制关闭")
	}

	log.Info().Msg("服务器已退出")
}
