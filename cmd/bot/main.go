package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/app"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/jwt"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Printf("command failed: %v", err)
		os.Exit(1)
	}
}

// run starts the bot, or with the token subcommand prints a bearer token
// for the HTTP API.
func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) > 0 && args[0] == "token" {
		return runToken(args[1:], out)
	}

	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	seed := fs.String("seed", "", "seed file path (overrides SEED_FILE)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		return err
	}
	if *seed != "" {
		cfg.Seed.File = *seed
	}

	bot, err := app.NewApp().WithConfig(cfg).Build()
	if err != nil {
		return err
	}
	bot.Run()
	return nil
}

func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.Int64("user", 0, "Telegram user id the token identifies")
	ttl := fs.Duration("ttl", 0, "token lifetime (defaults to JWT_ACCESS_EXPIRY)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID <= 0 {
		return fmt.Errorf("-user must be a positive Telegram user id")
	}

	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		return err
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.JWT.AccessExpiry
	}

	token, err := jwt.NewService(cfg, logging.NewNop()).GenerateToken(*userID, lifetime)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "%s\n# expires %s\n", token, time.Now().Add(lifetime).UTC().Format(time.RFC3339))
	return err
}
