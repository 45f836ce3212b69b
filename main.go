package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"signalbridge/src/database"
	"signalbridge/src/executor"
	"signalbridge/src/gateway"
	"signalbridge/src/model"
	"signalbridge/src/repository"
	"signalbridge/src/scheduler"
	"signalbridge/src/server"
	"signalbridge/src/state"
	"signalbridge/src/translator"
)

var APP_NAME = "signalbridge"

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	app := cli.NewApp()
	app.Name = "Signal Bridge"
	app.Usage = "Webhook to brokerage execution bridge"

	app.Commands = []cli.Command{
		serverCMD,
		flattenCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serverCMD = cli.Command{
		Name:        "server",
		Usage:       "run the bridge server",
		Action:      serverAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Connect to the brokerage gateway and serve the webhook and query API`,
	}
	flattenCMD = cli.Command{
		Name:        "flatten",
		Usage:       "close all open positions and exit",
		Action:      flattenAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `One-shot: connect, close every open position, disconnect`,
	}
)

func serverAction(_ *cli.Context) error {
	logger.Info("Starting bridge server")

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	ctx := context.Background()

	settingsRepo := repository.NewSettingsRepository()
	settings, err := settingsRepo.Load(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load settings")
	}
	store := model.NewSettingsStore(settings)

	deps, session, schedCancel := buildSession(ctx, store)
	defer schedCancel()

	server.StartServer(deps)

	// Server returned after SIGINT/SIGTERM; tear the gateway session down.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	session.Disconnect(shutdownCtx)

	return nil
}

// buildSession wires the gateway, cache, executor, and scheduler and
// establishes the brokerage connection. The returned cancel stops the
// scheduler loop.
func buildSession(ctx context.Context, store *model.SettingsStore) (server.Deps, *gateway.Session, context.CancelFunc) {
	client := gateway.NewWebClient(gateway.GetConfig())
	cache := state.NewCache()
	session := gateway.NewSession(client, cache)

	if err := session.Connect(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to brokerage gateway")
	}

	auditRepo := repository.NewOrderAuditRepository()
	tr := translator.New(client)
	exec := executor.New(client, cache, tr, auditRepo)

	sched := scheduler.New(exec, cache)
	schedCtx, schedCancel := context.WithCancel(context.Background())
	go sched.Run(schedCtx)

	deps := server.Deps{
		Executor:     exec,
		Cache:        cache,
		Settings:     store,
		SettingsRepo: repository.NewSettingsRepository(),
		AuditRepo:    auditRepo,
	}
	return deps, session, schedCancel
}

func flattenAction(_ *cli.Context) error {
	logger.Info("Starting one-shot flatten")

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := gateway.NewWebClient(gateway.GetConfig())
	cache := state.NewCache()
	session := gateway.NewSession(client, cache)

	if err := session.Connect(ctx); err != nil {
		logger.WithError(err).Error("Failed to connect to brokerage gateway")
		return err
	}
	defer session.Disconnect(ctx)

	tr := translator.New(client)
	exec := executor.New(client, cache, tr, repository.NewOrderAuditRepository())

	closed := exec.FlattenAll(ctx)
	logger.WithField("closed", closed).Info("Flatten complete")

	return nil
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
