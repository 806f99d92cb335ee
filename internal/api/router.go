package api

import (
	"expense-ledger/internal/api/handlers"
	"expense-ledger/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func SetupRouter(
	expenseHandler *handlers.ExpenseHandler,
	healthHandler *handlers.HealthHandler,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Idempotency-Key",
	}))
	app.Use(logger.New())

	app.Get("/health", healthHandler.Check)

	// API routes
	api := app.Group("/api/v1")

	expenses := api.Group("/expenses")
	expenses.Post("", middleware.RequireIdempotencyKey(appLogger), expenseHandler.CreateExpense)
	expenses.Get("", expenseHandler.ListExpenses)
	expenses.Get("/:id", expenseHandler.GetExpense)

	return app
}
