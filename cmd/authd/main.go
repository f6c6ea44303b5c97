// Command authd exposes the authentication core over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/oklog/run"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	auth "github.com/apo9666/authcore"
	"github.com/apo9666/authcore/internal/credential"
	"github.com/apo9666/authcore/internal/httpapi"
	"github.com/apo9666/authcore/internal/memory"
	"github.com/apo9666/authcore/internal/token"
	"github.com/apo9666/authcore/internal/totp"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	var logger log.Logger
	{
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var configPath string
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	{
		fs.Bool("api.debug", false, "Enable debug logging")
		fs.String("api.http-addr", ":8080", "Address to listen on")
		fs.String("api.allowed-origin", "http://localhost:8000", "Allowed CORS origin")
		fs.String("token.keys-dir", "./keys", "Directory of <kid>_key.pem / <kid>_public.pem pairs")
		fs.Duration("token.cache-ttl", token.DefaultCacheTTL, "Signing key and JWKS cache TTL")
		fs.String("webauthn.display-name", "authcore", "WebAuthn relying party display name")
		fs.String("webauthn.domain", "localhost", "WebAuthn relying party id")
		fs.String("webauthn.request-origin", "http://localhost:3000", "Allowed WebAuthn request origin")

		fs.StringVar(&configPath, "config", "", "Path to the config file")
		if err := fs.Parse(os.Args[1:]); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			logger.Log("message", "failed to parse cli flags", "error", err, "source", "cmd/authd")
			os.Exit(1)
		}
	}

	if _, err := os.Stat(configPath); configPath != "" && !os.IsNotExist(err) {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			logger.Log("message", "failed to load config file", "error", err, "source", "cmd/authd")
			os.Exit(1)
		}
	}
	if err := viper.BindPFlags(fs); err != nil {
		logger.Log("message", "failed to load cli flags", "error", err, "source", "cmd/authd")
		os.Exit(1)
	}

	if viper.GetBool("api.debug") {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	users := memory.NewUserRepository()
	hsm := memory.NewHSMStore()
	totpSvc := totp.New()

	tokenSvc := token.New(
		token.WithLogger(logger),
		token.WithKeysDir(viper.GetString("token.keys-dir")),
		token.WithCacheTTL(viper.GetDuration("token.cache-ttl")),
	)

	webauthnSvc, err := credential.NewWebAuthn(
		credential.WithLogger(logger),
		credential.WithDisplayName(viper.GetString("webauthn.display-name")),
		credential.WithDomain(viper.GetString("webauthn.domain")),
		credential.WithRequestOrigin(viper.GetString("webauthn.request-origin")),
	)
	if err != nil {
		logger.Log("message", "failed to build webauthn engine", "error", err, "source", "cmd/authd")
		os.Exit(1)
	}

	component := auth.NewComponent(users, tokenSvc, totpSvc, hsm, webauthnSvc)

	router := httpapi.NewRouter(component, httpapi.Config{
		AllowedOrigin: viper.GetString("api.allowed-origin"),
	}, logger)

	server := http.Server{
		Addr:         viper.GetString("api.http-addr"),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	var g run.Group
	{
		g.Add(func() error {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			return fmt.Errorf("signal received: %v", <-sig)
		}, func(err error) {
			logger.Log("message", "program was interrupted", "error", err, "source", "cmd/authd")
			cancel()
		})
	}
	{
		g.Add(func() error {
			logger.Log(
				"message", "API server is starting",
				"address", server.Addr,
				"source", "cmd/authd",
			)
			return server.ListenAndServe()
		}, func(err error) {
			logger.Log(
				"message", "API server was interrupted",
				"error", err,
				"source", "cmd/authd",
			)
			logger.Log(
				"message", "API server shut down",
				"error", server.Shutdown(ctx),
				"source", "cmd/authd",
			)
		})
	}

	err = g.Run()
	logger.Log("message", "actors stopped", "error", err, "source", "cmd/authd")
}
