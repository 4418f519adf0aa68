// Command kakeibo-admin grants or revokes the admin flag of a registered
// user.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"kakeibo/internal/cli"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/services"
)

func main() {
	email := flag.String("email", "", "email of the user to update")
	revoke := flag.Bool("revoke", false, "remove the admin flag instead of granting it")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: kakeibo-admin -email user@example.com [-revoke]")
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentAdmin)
	cfg := cli.LoadConfig(logger, nil)

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	accounts := services.NewAccountService(store, logger)
	err := accounts.SetAdmin(ctx, *email, !*revoke)
	if errors.Is(err, core.ErrUserNotFound) {
		logger.Error("No user with that email", applog.FieldEmail, *email)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("Failed to update admin flag", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Admin flag updated", applog.FieldEmail, *email, "admin", !*revoke)
}
