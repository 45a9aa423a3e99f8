package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talkincode/topolive/config"
	"github.com/talkincode/topolive/internal/adminapi"
	"github.com/talkincode/topolive/internal/app"
	"github.com/talkincode/topolive/internal/webserver"
)

var (
	h        = flag.Bool("h", false, "help usage")
	conffile = flag.String("c", "", "config yaml file")
	initdb   = flag.Bool("initdb", false, "drop and recreate all tables")
	migrate  = flag.Bool("migrate", false, "migrate database schema and exit")
)

func main() {
	flag.Parse()
	if *h {
		flag.Usage()
		return
	}

	cfg, err := config.LoadConfig(*conffile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.S().Info("database tables recreated")
		return
	}
	if *migrate {
		if err := application.MigrateDB(true); err != nil {
			zap.S().Errorf("migrate database: %v", err)
		}
		return
	}

	webserver.Init(application)
	adminapi.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(webserver.Listen)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zap.S().Info("shutting down admin server")
		return webserver.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.S().Errorf("server exited: %v", err)
	}
}
