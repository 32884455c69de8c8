package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rpx",
	Short: "rpx runs a non-blocking TCP/HTTP reactor server, client, or reverse proxy.",
	Long: `rpx is a reactor-core TCP networking tool with an HTTP/1.1 layer:
run it as an HTTP echo server, a one-shot HTTP client, or an HTTP reverse proxy.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(proxyCmd)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "rpx:", err)
	os.Exit(1)
}
