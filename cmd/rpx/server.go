package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frezcirno/rpx/httpx"
	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
	"github.com/frezcirno/rpx/rpxmetrics"
)

var serverListen string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run an HTTP/1.1 server that echoes request bodies back as responses.",
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().StringVarP(&serverListen, "listen", "l", ":8080", "address to listen on")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if serverListen != "" {
		cfg.ListenAddr = serverListen
	}

	ap, err := parseAddr(cfg.ListenAddr)
	if err != nil {
		return err
	}

	loop, err := reactor.NewEventLoop(reactor.WithLogger(newLogger(cfg.LogLevel)))
	if err != nil {
		return fmt.Errorf("rpx: event loop: %w", err)
	}

	addr := netutil.NewAddress(ap.Addr(), ap.Port())
	srv, err := httpx.NewServer(loop, addr, cfg.ReusePort)
	if err != nil {
		return fmt.Errorf("rpx: http server: %w", err)
	}
	srv.SetLogger(newLogger(cfg.LogLevel))
	srv.SetKeepalive(cfg.Keepalive)
	srv.SetThreadNum(cfg.WorkerCount)

	router := httpx.NewRouter()
	router.AddRoute("/", echoHandler)
	srv.SetRequestCallback(router.HandleRequest)

	if cfg.MetricsAddr != "" {
		collector := rpxmetrics.New("server")
		srv.SetMetrics(collector)
		startMetricsServer(cfg.MetricsAddr, collector)
	}

	srv.Start()
	return loop.Run()
}

func echoHandler(ctx *httpx.Context) {
	req := ctx.Message()
	body := req.Body
	ctx.StartResponse(200)
	ctx.SendHeader("Content-Type", "text/plain")
	ctx.SendHeader("Content-Length", fmt.Sprintf("%d", len(body)))
	ctx.EndHeaders()
	ctx.Send(body)
}
