// Command nodebrain is a minimal demonstration command loop over the
// reactive cell engine: it loads a config file (if given), starts an
// Engine, and reads §6 command-surface lines from stdin until EOF or a
// shutdown signal, mirroring the teacher's cmd/server/main.go shape
// (config.Load, logger setup, signal-driven graceful shutdown) scaled
// down from an HTTP server to a line-oriented console.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nodebrain/nodebrain"
	"github.com/nodebrain/nodebrain/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a NodeBrain engine config YAML file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nodebrain: config: %v\n", err)
		os.Exit(1)
	}

	engine := nodebrain.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "nodebrain: start: %v\n", err)
		os.Exit(1)
	}
	defer engine.Stop(context.Background())

	runConsole(ctx, engine)
}

func runConsole(ctx context.Context, engine *nodebrain.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			result, err := engine.Cmd(ctx, line)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			fmt.Println(result)
		}
	}
}
