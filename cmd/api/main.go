package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"numa-sim/internal/accounts"
	"numa-sim/internal/auth"
	"numa-sim/internal/clock"
	"numa-sim/internal/config"
	"numa-sim/internal/httpserver"
	"numa-sim/internal/ledger"
	"numa-sim/internal/marketdata"
	"numa-sim/internal/membership"
	"numa-sim/internal/outbox"
	"numa-sim/internal/pioneer"
	"numa-sim/internal/positions"
	"numa-sim/internal/scheduler"
	"numa-sim/internal/staking"
	"numa-sim/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var persist store.Store
	if cfg.DBDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		persist = store.NewPostgresStore(pool)
		log.Printf("persistence: postgres")
	} else {
		persist = store.NewMemoryStore()
		log.Printf("persistence: in-memory")
	}
	sinks := []outbox.Sink{store.NewOutboxSink(persist)}
	if cfg.NATSURL != "" {
		natsSink, err := outbox.NewNATSSink(cfg.NATSURL, "numa")
		if err != nil {
			log.Fatal(err)
		}
		defer natsSink.Close()
		sinks = append(sinks, natsSink)
		log.Printf("event export: nats %s", cfg.NATSURL)
	}
	events := outbox.New(sinks...)
	go events.Run(ctx)

	clk := clock.System()
	ledgerSvc := ledger.NewService(events, clk)
	accountsSvc := accounts.NewService(ledgerSvc, accounts.DefaultGrant(), clk)
	authSvc := auth.NewService(accountsSvc, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	membershipSvc := membership.NewService(ledgerSvc, clk)
	stakingSvc := staking.NewService(ledgerSvc, clk)
	pioneerSvc := pioneer.NewService(ledgerSvc, events, clk)

	feed := marketdata.NewFeed(cfg.FeedSeed)
	posSvc := positions.NewService(ledgerSvc, feed, events, clk)
	bus := marketdata.NewBus()
	sched := scheduler.New(feed, posSvc, bus, clk, cfg.TickInterval)
	sched.Start()

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		for _, spec := range marketdata.Specs() {
			go marketdata.NewMirror(client, feed, spec.Symbol, cfg.MirrorInterval).Run(ctx)
		}
		log.Printf("price mirror: redis %s", cfg.RedisAddr)
	}

	wsHandler := httpserver.NewWSHandler(bus, authSvc, ledgerSvc, posSvc, cfg.WebSocketOrigin)
	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:       auth.NewHandler(authSvc),
		AccountsHandler:   accounts.NewHandler(accountsSvc),
		LedgerHandler:     ledger.NewHandler(ledgerSvc),
		PositionHandler:   positions.NewHandler(posSvc),
		StakingHandler:    staking.NewHandler(stakingSvc),
		PioneerHandler:    pioneer.NewHandler(pioneerSvc),
		MembershipHandler: membership.NewHandler(membershipSvc),
		MarketHandler:     marketdata.NewHandler(feed),
		AuthService:       authSvc,
		InternalTokenHash: cfg.InternalTokenHash,
		WSHandler:         wsHandler,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.Printf("server listening on %s", cfg.HTTPAddr)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}

	sched.Stop()
	cancel()
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	events.Drain(flushCtx)
}
