package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/leadcrm/go-crm-auth/auth"
	"github.com/leadcrm/go-crm-auth/internal/config"
	"github.com/leadcrm/go-crm-auth/server"
	"github.com/leadcrm/go-crm-auth/token"
	"github.com/leadcrm/go-crm-auth/token/jwt"
	"github.com/leadcrm/go-crm-auth/token/refresh"
	refreshredisrepo "github.com/leadcrm/go-crm-auth/token/refresh/redisrepo"
	refreshrepofake "github.com/leadcrm/go-crm-auth/token/refresh/repofake"
	"github.com/leadcrm/go-crm-auth/users"
	userrepofake "github.com/leadcrm/go-crm-auth/users/repofake"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	srv, err := buildServer(c)
	if err != nil {
		return fmt.Errorf("buildServer: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func buildServer(c config.Config) (*server.Server, error) {
	tokenRepo, err := buildTokenRepo(c)
	if err != nil {
		return nil, err
	}

	jwtCreator := jwt.NewCreator(c.GetTokenSecret(), c)
	refreshManager := refresh.NewManager(tokenRepo, c)
	issuer := token.NewIssuer(jwtCreator, refreshManager)

	userRepo := userrepofake.NewFakeUserRepo()
	seedDevUsers(c, userRepo)

	authService, err := auth.NewService(userRepo, issuer, refreshManager)
	if err != nil {
		return nil, fmt.Errorf("auth.NewService: %w", err)
	}

	return server.New(c, authService, issuer)
}

func buildTokenRepo(c config.Config) (refresh.Repo, error) {
	switch c.GetTokenStore() {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info().Str("addr", c.GetRedisAddr()).Msg("using redis refresh token store")
		return refreshredisrepo.NewRedisRefreshTokenRepo(client, ""), nil
	case "memory":
		log.Info().Msg("using in-memory refresh token store")
		return refreshrepofake.NewFakeRefreshTokenRepo(), nil
	}
	return nil, fmt.Errorf("unknown token store %q", c.GetTokenStore())
}

// seedDevUsers makes local runs usable out of the box. The in-memory user
// repo is a stand-in for the CRM's real credential store.
func seedDevUsers(c config.Config, repo users.UserRepo) {
	if c.GetEnv() != "DEV" {
		return
	}
	hash, err := users.HashPassword("Password123")
	if err != nil {
		log.Error().Err(err).Msg("seeding dev users failed")
		return
	}
	_ = repo.Upsert(&users.User{
		ID:           "dev-employer-1",
		Name:         "Dev Employer",
		Email:        "employer@example.com",
		PasswordHash: hash,
		Role:         users.RoleEmployer,
		CreatedAt:    time.Now(),
	})
	_ = repo.Upsert(&users.User{
		ID:           "dev-manager-1",
		Name:         "Dev Manager",
		Email:        "manager@example.com",
		PasswordHash: hash,
		Role:         users.RoleManager,
		CreatedAt:    time.Now(),
	})
	log.Debug().Msg("seeded dev users")
}

func setupLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
