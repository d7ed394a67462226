package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/taskforge/taskforge-api/middleware"
	"github.com/taskforge/taskforge-api/services/handlers"
	"github.com/taskforge/taskforge-api/shared"
)

type HttpService struct {
	context.DefaultService

	jwtSvc  *JWTService
	authSvc *AuthService
	rlSvc   *RateLimitService

	port int
	app  *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	svc.authSvc = svc.Service(AUTH_SVC).(*AuthService)
	svc.rlSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)

	svc.app = BuildApp(svc.jwtSvc, svc.authSvc, svc.rlSvc,
		splitList(os.Getenv("RATE_LIMIT_EXCLUDE_PATHS"), "/ping,/swagger/*"),
		splitList(os.Getenv("RATE_LIMIT_TRUSTED_PROXIES"), ""),
	)

	return svc.app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	_ = svc.app.Shutdown()
}

// BuildApp assembles the fiber application: admission control first, then
// identity, then routes.
func BuildApp(jwtSvc *JWTService, authSvc *AuthService, rlSvc *RateLimitService, excludePaths, trustedProxies []string) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder:  shared.JSONAPI.Marshal,
		JSONDecoder:  shared.JSONAPI.Unmarshal,
		ErrorHandler: handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	rateLimitMw := middleware.NewRateLimitMiddleware(rlSvc, excludePaths, trustedProxies)
	authMw := middleware.NewAuthMiddleware(jwtSvc, authSvc)

	app.Use(rateLimitMw.Handler())
	app.Use(authMw.Authenticate())

	app.Get("/ping", ping)

	authHandler := handlers.NewAuthHandler(authSvc, jwtSvc)
	userHandler := handlers.NewUserHandler(authSvc)

	v1 := app.Group("/api/v1")
	v1.Post("/register", authHandler.Register)
	v1.Post("/login", authHandler.Login)
	v1.Post("/refresh", authHandler.RefreshToken)

	v1.Post("/logout", authMw.RequiredAuth(), authHandler.Logout)
	v1.Post("/logout-all", authMw.RequiredAuth(), authHandler.LogoutAll)
	v1.Put("/password", authMw.RequiredAuth(), userHandler.ChangePassword)
	v1.Get("/me", authMw.RequiredAuth(), userHandler.Me)

	app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseNotFound(c)
	})

	return app
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")

	return shared.ResponseJSON(c, http.StatusOK, "Success", "pong")
}

func handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		if appErr.StatusCode >= 500 {
			log.WithError(err).Error("Request failed")
		}
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.WithError(err).Error("Unhandled error")
	return shared.ResponseInternalError(c, err)
}

func splitList(value, fallback string) []string {
	if value == "" {
		value = fallback
	}
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
