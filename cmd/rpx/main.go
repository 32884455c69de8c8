// Command rpx is the reference CLI for the rpx reactor-core networking
// library: server, client, and proxy subcommands, each reading their
// recognized options off a YAML config file and/or flags via cobra and
// goccy/go-yaml.
package main

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatal(err)
	}
}
