package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/swissborg/cert-ledger/config"
)

const maxUploadSize = "10M"

type Server struct {
	echo     *echo.Echo
	issuer   Issuer
	verifier Verifier
}

func NewServer(issuer Issuer, verifier Verifier) *Server {
	s := &Server{issuer: issuer, verifier: verifier}
	s.echo = s.makeEcho()
	return s
}

func (s *Server) Start(cfg config.APIConf) error {
	log.Infof("API server starting...")

	err := s.echo.Start(fmt.Sprintf("%s:%s", cfg.Host, cfg.Port))
	if err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	const shutdownTimeout = time.Second * 10

	ctx, cancelTimeout := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelTimeout()

	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}

	return nil
}

func (s *Server) makeEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.
				WithField("requestID", v.RequestID).
				WithField("method", v.Method).
				WithField("uri", v.URI).
				WithField("status", v.Status).
				WithField("latency", v.Latency.String())
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http request")
			return nil
		},
	}))

	e.Validator = &CustomValidator{validator: validator.New(validator.WithRequiredStructEnabled())}

	handlers := NewHandlers(s.issuer, s.verifier)

	certGroup := e.Group("/cert")
	certGroup.POST("/issue", handlers.IssueCert)
	certGroup.POST("/bulk", handlers.BulkIssueCert)
	certGroup.POST("/verify", handlers.VerifyCert, middleware.BodyLimit(maxUploadSize))
	certGroup.GET("/:id", handlers.GetCert)
	certGroup.GET("/:id/document", handlers.GetCertDocument)

	return e
}

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
