package main

import (
	"context"
	"fmt"
	"os"

	"hardmine/internal/logger"
	"hardmine/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()
	logger.Init("info", false)

	app := &cli.App{
		Name:  "migrate",
		Usage: "manage the hardmine database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "postgres connection string",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "print migration files in apply order",
				Action: func(c *cli.Context) error {
					names, err := migrations.Names()
					if err != nil {
						return err
					}
					for _, n := range names {
						fmt.Println(n)
					}
					return nil
				},
			},
			{
				Name:  "apply",
				Usage: "apply all migrations",
				Action: func(c *cli.Context) error {
					dsn := c.String("database-url")
					if dsn == "" {
						return cli.Exit("DATABASE_URL not set", 1)
					}
					ctx := context.Background()
					db, err := pgxpool.New(ctx, dsn)
					if err != nil {
						return err
					}
					defer db.Close()

					return migrations.Apply(ctx, db, func(name string) {
						logger.Info("applied migration", "file", name)
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal("migrate failed", "error", err)
	}
}
