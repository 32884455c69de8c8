package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frezcirno/rpx/httpx"
	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/proxy"
	"github.com/frezcirno/rpx/reactor"
	"github.com/frezcirno/rpx/rpxmetrics"
)

var proxyListen string
var proxyUpstream string
var proxyStaticRoot string
var proxyStaticAlias string

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run an HTTP/1.1 reverse proxy in front of a single upstream.",
	RunE:  runProxy,
}

func init() {
	proxyCmd.Flags().StringVarP(&proxyListen, "listen", "l", ":8080", "address to listen on")
	proxyCmd.Flags().StringVarP(&proxyUpstream, "upstream", "u", "", "upstream address (required)")
	proxyCmd.Flags().StringVar(&proxyStaticRoot, "static-root", "", "optional directory to serve under /static")
	proxyCmd.Flags().StringVar(&proxyStaticAlias, "static-alias", "/static", "route prefix the static handler is mounted at")
	_ = proxyCmd.MarkFlagRequired("upstream")
}

func runProxy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if proxyListen != "" {
		cfg.ListenAddr = proxyListen
	}
	cfg.UpstreamAddr = proxyUpstream

	listenAP, err := parseAddr(cfg.ListenAddr)
	if err != nil {
		return err
	}
	upstreamAP, err := parseAddr(cfg.UpstreamAddr)
	if err != nil {
		return err
	}

	loop, err := reactor.NewEventLoop(reactor.WithLogger(newLogger(cfg.LogLevel)))
	if err != nil {
		return fmt.Errorf("rpx: event loop: %w", err)
	}

	listenAddr := netutil.NewAddress(listenAP.Addr(), listenAP.Port())
	srv, err := httpx.NewServer(loop, listenAddr, cfg.ReusePort)
	if err != nil {
		return fmt.Errorf("rpx: http server: %w", err)
	}
	logger := newLogger(cfg.LogLevel)
	srv.SetLogger(logger)
	srv.SetKeepalive(cfg.Keepalive)
	srv.SetThreadNum(cfg.WorkerCount)

	upstreamAddr := netutil.NewAddress(upstreamAP.Addr(), upstreamAP.Port())
	handler := proxy.NewHandler(upstreamAddr)
	handler.SetLogger(logger)

	router := httpx.NewRouter()
	if proxyStaticRoot != "" {
		static := httpx.NewStaticHandler(proxyStaticRoot, proxyStaticAlias)
		router.AddRoute(proxyStaticAlias, static.Handle)
	}
	router.AddRoute("/", handler.Handle)
	srv.SetRequestCallback(router.HandleRequest)

	if cfg.MetricsAddr != "" {
		collector := rpxmetrics.New("proxy")
		srv.SetMetrics(collector)
		startMetricsServer(cfg.MetricsAddr, collector)
	}

	srv.Start()
	return loop.Run()
}
