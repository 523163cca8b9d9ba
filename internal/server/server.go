package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"backend-mapssaver/internal/auth"
	"backend-mapssaver/internal/config"
	"backend-mapssaver/internal/logging"
	"backend-mapssaver/internal/mail"
	"backend-mapssaver/internal/storage"
	"backend-mapssaver/internal/trip"
)

// multipart framing allowance on top of the upload limit
const formOverhead = 1 << 20

type Server struct {
	App   *fiber.App
	Cfg   config.Config
	DB    *pgxpool.Pool
	Redis *redis.Client
	Log   *zap.Logger
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		BodyLimit:    int(uploadLimit(cfg) + formOverhead),
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New())
	app.Use(logging.Middleware(log))

	s := &Server{
		App:   app,
		Cfg:   cfg,
		DB:    db,
		Redis: redisClient,
		Log:   log,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	composer := mail.Composer{From: s.Cfg.MailFrom, PublicURL: s.Cfg.PublicURL, ClientURL: s.Cfg.ClientURL}
	authSvc := auth.NewService(s.Cfg.JWTSecret, s.DB,
		auth.WithTokenStore(auth.NewTokenStore(s.Redis)),
		auth.WithMail(mail.NewLogSender(s.Log), composer),
		auth.WithTTL(s.Cfg.AccessTokenTTL, s.Cfg.RefreshTokenTTL, s.Cfg.ConfirmTokenTTL, s.Cfg.ResetTokenTTL),
	)
	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App, authSvc)
	trip.RegisterRoutes(s.App.Group("/api/trips"), trip.NewService(s.DB), jwtMiddleware, uploadLimit(s.Cfg))
}

func uploadLimit(cfg config.Config) int64 {
	if cfg.UploadMaxBytes > 0 {
		return cfg.UploadMaxBytes
	}
	return storage.DefaultMaxBytes
}

// errorHandler renders unhandled errors as {"error": message}. Only fiber
// errors expose their message; anything else becomes a logged 500.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error."

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}
