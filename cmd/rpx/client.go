package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frezcirno/rpx/httpx"
	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
)

var clientTarget string
var clientPath string

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Send one HTTP/1.1 request and print the response.",
	RunE:  runClient,
}

func init() {
	clientCmd.Flags().StringVarP(&clientTarget, "target", "t", "127.0.0.1:8080", "server address")
	clientCmd.Flags().StringVarP(&clientPath, "path", "p", "/", "request path")
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ap, err := parseAddr(clientTarget)
	if err != nil {
		return err
	}

	loop, err := reactor.NewEventLoop(reactor.WithLogger(newLogger(cfg.LogLevel)))
	if err != nil {
		return fmt.Errorf("rpx: event loop: %w", err)
	}

	addr := netutil.NewAddress(ap.Addr(), ap.Port())
	client := httpx.NewClient(loop, addr)
	client.SetLogger(newLogger(cfg.LogLevel))
	client.SetKeepalive(cfg.Keepalive)
	client.SetReconnect(false)
	client.SetRetryBackoff(cfg.retryInitial(), cfg.retryMax())

	client.SetConnectCallback(func(ctx *httpx.Context) {
		ctx.StartRequest("GET", clientPath)
		ctx.SendHeader("Host", clientTarget)
		ctx.EndHeaders()
	})
	client.SetResponseCallback(func(ctx *httpx.Context) {
		resp := ctx.Message()
		fmt.Printf("%d %s\n", resp.StatusCode, resp.Reason)
		for _, h := range resp.Headers {
			fmt.Printf("%s: %s\n", h.Name, h.Value)
		}
		fmt.Println()
		fmt.Println(string(resp.Body))
		ctx.ForceClose()
	})
	client.SetCloseCallback(func(*httpx.Context) {
		loop.Quit()
	})

	client.Connect()
	return loop.Run()
}
