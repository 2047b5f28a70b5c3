// Command juntad runs a standalone junta server: the WS listener plus
// the ops HTTP endpoint, wired the way examples/orderflow/run.go wires
// Postgres and an HTTP mux alongside a Temporal worker. It ships one
// demo Req arm ("echo") so the binary is runnable on its own, the same
// role examples/echo/cmd/echo/main.go plays for rig.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/matgreaves/run"
	"github.com/mkrause/junta"
	"github.com/mkrause/junta/connect/httpx"
	juntapgx "github.com/mkrause/junta/connect/pgx"
	"github.com/mkrause/junta/connect/redisx"
	"github.com/mkrause/junta/protocol"
	"github.com/mkrause/junta/pubsub"
	"github.com/mkrause/junta/service"
	"github.com/redis/go-redis/v9"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8765", "WebSocket listen address")
	opsAddr := flag.String("ops-addr", "127.0.0.1:8766", "ops HTTP listen address (/healthz)")
	subproto := flag.String("subprotocol", "junta", "required WebSocket subprotocol")
	outbox := flag.Int("outbox", 32, "per-connection outbound queue depth")
	postgresDSN := flag.String("postgres-dsn", "", "if set, persist Pub events to this Postgres DSN")
	redisAddr := flag.String("redis-addr", "", "if set, fan Pub/Sub out through this Redis instance instead of in-process only")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := runDaemon(ctx, logger, config{
		addr:        *addr,
		opsAddr:     *opsAddr,
		subproto:    *subproto,
		outbox:      *outbox,
		postgresDSN: *postgresDSN,
		redisAddr:   *redisAddr,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "juntad: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	addr        string
	opsAddr     string
	subproto    string
	outbox      int
	postgresDSN string
	redisAddr   string
}

func runDaemon(ctx context.Context, logger *slog.Logger, cfg config) error {
	var topics junta.Topics = pubsub.NewLocal()
	if cfg.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
		defer rdb.Close()
		topics = redisx.New(rdb)
		logger.Info("fanning Pub/Sub out through redis", "addr", cfg.redisAddr)
	}

	chain := service.OrAll[*protocol.EventContext, struct{}](
		protocol.SubProtocol(topics),
		protocol.UnsubProtocol(topics),
		protocol.PubProtocol(topics),
		echoArm(),
	)

	if cfg.postgresDSN != "" {
		pool, err := juntapgx.Connect(ctx, cfg.postgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := juntapgx.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		mw := &juntapgx.PersistMiddleware{Pool: pool}
		chain = mw.Chain(chain)
		logger.Info("persisting Pub events to postgres")
	}

	handler := protocol.New(chain)

	srv, err := junta.Bind(cfg.addr).
		Logger(logger).
		Subprotocol(cfg.subproto).
		Topics(topics).
		OutboxSize(cfg.outbox).
		Serve(handler)
	if err != nil {
		return err
	}

	ready := func() bool { return true }
	opsHandler := httpx.Healthz(ready)

	group := run.Group{
		"ws": srv.Runner(),
		"ops": run.Func(func(ctx context.Context) error {
			return httpx.Serve(ctx, cfg.opsAddr, opsHandler)
		}),
	}

	logger.Info("juntad listening", "ws", cfg.addr, "ops", cfg.opsAddr, "subprotocol", cfg.subproto)
	return group.Run(ctx)
}

// echoArm answers a Req named "echo" with its own payload, a minimal
// demo arm so the binary is exercisable without any other service
// wired up, mirroring examples/echo's standalone /hello handler.
func echoArm() protocol.Chain {
	return protocol.RequestProtocol("echo", func(_ context.Context, rc *protocol.Context[any]) (any, error) {
		return rc.Data(), nil
	})
}
