package main

import (
	"context"
	"fmt"
	"os"

	"hardmine/internal/db"
	"hardmine/internal/domain"
	"hardmine/internal/logger"
	"hardmine/internal/repository"
	"hardmine/internal/service"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

// Seeds a miner with starting CS and equipment and prints a JWT for it.
func main() {
	_ = godotenv.Load()
	logger.Init("info", false)

	app := &cli.App{
		Name:  "create_test_user",
		Usage: "seed a test miner and print its token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-url", EnvVars: []string{"DATABASE_URL"}},
			&cli.StringFlag{Name: "jwt-secret", EnvVars: []string{"JWT_SECRET"}},
			&cli.Int64Flag{Name: "tg-id", Value: 1234567890},
			&cli.StringFlag{Name: "username", Value: "testuser"},
			&cli.Int64Flag{Name: "cs", Value: 10000, Usage: "CS to credit before buying"},
			&cli.IntFlag{Name: "buy", Value: 1, Usage: "units of the cheapest equipment to buy"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal("create_test_user failed", "error", err)
	}
}

func run(c *cli.Context) error {
	dsn := c.String("database-url")
	if dsn == "" {
		return cli.Exit("DATABASE_URL not set", 1)
	}
	secret := c.String("jwt-secret")
	if secret == "" {
		return cli.Exit("JWT_SECRET not set", 1)
	}

	ctx := context.Background()
	pool := db.Connect(ctx, dsn)
	defer pool.Close()

	repo := repository.NewUserRepository(pool)
	balance := service.NewBalanceService(pool)
	equipment := service.NewEquipmentService(pool, balance, nil)

	tgID := c.Int64("tg-id")
	u, err := repo.GetByTgID(ctx, tgID)
	if err != nil {
		u = &domain.User{TgID: tgID, Username: c.String("username"), FirstName: "Tester"}
		if err := repo.Create(ctx, u); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		logger.Info("user created", "id", u.ID, "tg_id", u.TgID)
	} else {
		logger.Info("user already exists", "id", u.ID)
	}

	if cs := c.Int64("cs"); cs > 0 {
		bal, err := balance.Credit(ctx, u.ID, domain.CurrencyCS, decimal.NewFromInt(cs), domain.TxAdminGrant, map[string]interface{}{"source": "create_test_user"})
		if err != nil {
			return fmt.Errorf("credit: %w", err)
		}
		logger.Info("credited", "cs", cs, "balance", bal.String())
	}

	catalog, err := equipment.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if len(catalog) > 0 {
		// catalog is ordered by tier, first entry is the starter rig
		et := catalog[0]
		for i := 0; i < c.Int("buy"); i++ {
			res, err := equipment.Buy(ctx, u.ID, et.ID)
			if err != nil {
				logger.Warn("buy failed", "equipment", et.Code, "error", err)
				break
			}
			logger.Info("bought", "equipment", et.Code, "quantity", res.Owned.Quantity, "total_hashrate", res.TotalHashrate)
		}
	}

	service.InitJWT(secret)
	token, err := service.GenerateJWT(u.ID)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Println(token)
	return nil
}
