package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "dormitory-forms/docs"
	"dormitory-forms/internal/prefs"
	"dormitory-forms/internal/session"
	"dormitory-forms/pkg/idgen"
	"dormitory-forms/pkg/validator"
)

// DefaultShutdownTimeout 优雅关闭的等待时间
const DefaultShutdownTimeout = 10 * time.Second

// Options 服务依赖
type Options struct {
	Sessions      *session.Manager
	Prefs         prefs.Store
	Validator     *validator.Validator
	IDs           *idgen.Snowflake
	CenturyPrefix string
	Logger        *zap.Logger
	Swagger       bool
}

// Server 表单引擎的 HTTP 接口
type Server struct {
	engine *gin.Engine
	opts   Options
	logger *zap.Logger
}

// @title Dormitory Forms API
// @version 1.0
// @description Form sessions, validation and wizard progress for dormitory accommodation applications.
// @BasePath /api/v1

// New 创建服务并注册路由
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Validator == nil {
		opts.Validator = validator.Default()
	}
	if opts.Prefs == nil {
		opts.Prefs = prefs.NewMemory()
	}

	engine := gin.New()
	engine.Use(RequestID(opts.IDs), RequestLogger(opts.Logger), Recovery(opts.Logger))

	s := &Server{engine: engine, opts: opts, logger: opts.Logger}

	engine.GET("/healthz", Health())
	if opts.Swagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group("/api/v1")
	if opts.Sessions != nil {
		SetupSessionRoutes(api, opts.Sessions)
	}
	SetupContractRoutes(api, opts.Validator, opts.CenturyPrefix, opts.Logger)
	SetupPreferenceRoutes(api, opts.Prefs)

	engine.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "route not found")
	})
	return s
}

// Handler 实现 http.Handler 的路由
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 监听 addr，ctx 结束时优雅关闭
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
