// Command server exposes a botflow.Store over HTTP for the flow editor's
// serializer and the rest client.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"

	"github.com/BotXPertUPC/botflow"
	"github.com/BotXPertUPC/botflow/logging"
	"github.com/BotXPertUPC/botflow/postgres"
)

func main() {
	flags := pflag.NewFlagSet("botflow-server", pflag.ExitOnError)
	flags.String("listen", ":3000", "address to listen on")
	flags.String("database-url", "", "postgres connection string")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.Bool("log-json", false, "emit JSON logs")
	_ = flags.Parse(os.Args[1:])

	cfg, err := loadConfig(flags)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, parseLevel(cfg.LogLevel), cfg.LogJSON)

	if cfg.DatabaseURL == "" {
		logger.Error("database-url is not set")
		os.Exit(1)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	app := newApp(postgres.New(pool), logger)

	logger.Info("listening", "addr", cfg.Listen)
	if err := app.Listen(cfg.Listen); err != nil {
		logger.Error("listen", "err", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newApp builds the fiber app over a store. Split out so tests can run the
// API against an in-memory store.
func newApp(store botflow.Store, logger *slog.Logger) *fiber.App {
	app := fiber.New()

	fail := func(c fiber.Ctx, err error) error {
		logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	intParam := func(c fiber.Ctx, name string) (int, bool) {
		id, err := strconv.Atoi(c.Params(name))
		return id, err == nil
	}

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := store.CreateSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := store.DropSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Botflows ──────────────────────────────────────────────────────
	app.Post("/botflows", func(c fiber.Ctx) error {
		var f botflow.Botflow
		if err := c.Bind().JSON(&f); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if _, err := store.CreateFlow(c.Context(), &f); err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(f)
	})

	app.Get("/botflows", func(c fiber.Ctx) error {
		flows, err := store.ListFlows(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(flows)
	})

	app.Get("/botflows/:id", func(c fiber.Ctx) error {
		id, ok := intParam(c, "id")
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
		}
		f, err := store.GetFlow(c.Context(), id)
		if errors.Is(err, botflow.ErrFlowNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "botflow not found"})
		}
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(f)
	})

	app.Put("/botflows/:id", func(c fiber.Ctx) error {
		id, ok := intParam(c, "id")
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
		}
		var f botflow.Botflow
		if err := c.Bind().JSON(&f); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		f.ID = id
		err := store.UpdateFlow(c.Context(), &f)
		if errors.Is(err, botflow.ErrFlowNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "botflow not found"})
		}
		if err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Delete("/botflows/:id", func(c fiber.Ctx) error {
		id, ok := intParam(c, "id")
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
		}
		if err := store.DeleteFlow(c.Context(), id); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Get("/botflows/:id/nodes", func(c fiber.Ctx) error {
		id, ok := intParam(c, "id")
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
		}
		nodes, err := store.ListFlowNodes(c.Context(), id)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(nodes)
	})

	app.Post("/nodes", func(c fiber.Ctx) error {
		var n botflow.PersistedNode
		if err := c.Bind().JSON(&n); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		err := store.CreateNode(c.Context(), &n)
		if errors.Is(err, botflow.ErrConflict) {
			return c.Status(409).JSON(fiber.Map{"error": "node id already exists"})
		}
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(n)
	})

	app.Put("/nodes/:id", func(c fiber.Ctx) error {
		id, ok := intParam(c, "id")
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
		}
		var n botflow.PersistedNode
		if err := c.Bind().JSON(&n); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		n.ID = id
		err := store.UpdateNode(c.Context(), &n)
		if errors.Is(err, botflow.ErrPersistedNodeNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "node not found"})
		}
		if err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Delete("/nodes/:id", func(c fiber.Ctx) error {
		id, ok := intParam(c, "id")
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
		}
		if err := store.DeleteNode(c.Context(), id); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── List options ──────────────────────────────────────────────────
	app.Get("/list-options", func(c fiber.Ctx) error {
		options, err := store.ListOptions(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(options)
	})

	app.Post("/list-options", func(c fiber.Ctx) error {
		var o botflow.ListOption
		if err := c.Bind().JSON(&o); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if _, err := store.CreateOption(c.Context(), &o); err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(o)
	})

	app.Delete("/list-options/:id", func(c fiber.Ctx) error {
		id, ok := intParam(c, "id")
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid id"})
		}
		if err := store.DeleteOption(c.Context(), id); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	return app
}
