package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	authrepo "github.com/eisengrid/service-api-go/internal/auth/repo"
	researchrepo "github.com/eisengrid/service-api-go/internal/research/repo"
	"github.com/eisengrid/service-api-go/internal/router"
	taskrepo "github.com/eisengrid/service-api-go/internal/task/repo"
	topicrepo "github.com/eisengrid/service-api-go/internal/topic/repo"
	userrepo "github.com/eisengrid/service-api-go/internal/user/repo"
	"github.com/eisengrid/service-api-go/pkg/database"
	"github.com/eisengrid/service-api-go/pkg/utilities"
)

func main() {
	// load .env if present; real env wins when both are set
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-api-go")

	cfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	sqlxDB := sqlx.NewDb(sqlDB, "postgres")
	defer sqlxDB.Close()

	// table creation is idempotent; ordering matters for the foreign keys
	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()
	for _, ensure := range []func(context.Context) error{
		userrepo.NewUserRepo(sqlxDB).EnsureTable,
		topicrepo.NewTopicRepo(sqlxDB).EnsureTable,
		taskrepo.NewTaskRepo(sqlxDB).EnsureTable,
		authrepo.NewCodeRepo(sqlxDB).EnsureTable,
		researchrepo.NewResearchRepo(sqlxDB).EnsureTable,
	} {
		if err := ensure(setupCtx); err != nil {
			sugar.Fatalf("ensure table: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	handler := router.RegisterRoutes(sugar, sqlxDB)
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: handler,
	}

	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
