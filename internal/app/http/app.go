package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"premium_gallery/internal/lib/logger/sl"
	"premium_gallery/internal/middleware"
	httprouters "premium_gallery/internal/transport/http"
	"premium_gallery/internal/transport/http/dto"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// Options параметры сервера. UploadsDir раздается по /uploads,
// если файлы лежат на локальном диске.
type Options struct {
	Host       string
	Port       string
	BodyLimit  int64
	UploadsDir string
}

type Server struct {
	log     *slog.Logger
	e       *echo.Echo
	routers *httprouters.Routers
	opts    Options
}

func New(log *slog.Logger, opts Options, routers *httprouters.Routers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	validate := validator.New()
	if err := dto.RegisterValidations(validate); err != nil {
		log.Error("failed to register request validations", sl.Err(err))
	}
	e.Validator = &CustomValidator{validator: validate}

	e.Use(echomw.CORS())
	e.Use(echomw.Recover())
	e.Use(middleware.PrometheusMetrics)

	if opts.BodyLimit > 0 {
		// запас на multipart-обвязку поверх самого файла
		e.Use(echomw.BodyLimit(strconv.FormatInt(opts.BodyLimit+1<<20, 10)))
	}

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote ip", v.RemoteIP),
			)

			return nil
		},
	}))

	return &Server{
		log:     log,
		e:       e,
		routers: routers,
		opts:    opts,
	}
}

// Handler нужен тестам, которые гоняют запросы через httptest
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info(op, slog.String("Start", "server"), slog.String("port", s.opts.Port))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	addr := fmt.Sprintf("%s:%s", s.opts.Host, s.opts.Port)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	optCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	s.log.Info("stopping", slog.String("op", op))

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

func (s *Server) BuildRouters() {
	s.e.GET("/health", s.routers.Health)
	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if s.opts.UploadsDir != "" {
		s.e.Static("/uploads", s.opts.UploadsDir)
	}

	api := s.e.Group("/api/v1")
	{
		galleries := api.Group("/galleries")
		{
			galleries.POST("", s.routers.CreateGallery)
			galleries.GET("", s.routers.ListGalleries)
			galleries.GET("/:id", s.routers.GetGallery)
			galleries.DELETE("/:id", s.routers.DeleteGallery)
			galleries.POST("/:id/items", s.routers.UploadItem)
			galleries.GET("/:id/items", s.routers.ListItems)
		}

		items := api.Group("/items")
		{
			items.GET("/:id", s.routers.GetItem)
			items.DELETE("/:id", s.routers.DeleteItem)
			items.GET("/:id/thumb", s.routers.Thumb)
			items.GET("/:id/path", s.routers.FullPath)
			items.GET("/:id/last", s.routers.LastInPosition)
		}
	}
}
