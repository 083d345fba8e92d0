// Command nque operates a persistent FIFO queue from the shell.
// It loads configuration, opens the queue directory, and runs one
// subcommand per invocation.
//
// Usage:
//
//	nque [--config nque.yaml] [--data DIR] [-n COUNT] <command> [items...]
//
// Commands:
//
//	put [item ...]  — append items (reads newline-delimited stdin when no args)
//	get             — print up to COUNT items without removing them
//	remove          — delete up to COUNT items
//	pop             — print and delete up to COUNT items atomically
//	len             — print the number of stored items
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arthur78/nque"
	"github.com/arthur78/nque/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nque: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "nque.yaml", "path to config file")
		dataDir    = flag.String("data", "", "queue data directory (overrides config)")
		count      = flag.Int("n", 1, "item count for get, remove and pop")
		wait       = flag.Bool("wait", false, "put: block and retry while the queue is full")
	)
	flag.Parse()

	// ── 1. Load configuration ────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ── 2. Set up structured logger ──────────────────────────────────────────
	// Logs go to stderr; stdout carries queue payloads.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	// ── 3. Open the queue ────────────────────────────────────────────────────
	q, err := nque.Open(cfg.DataDir, nque.Config{
		ItemMaxBytes:  cfg.Queue.ItemMaxBytes,
		ItemsMax:      cfg.Queue.ItemsMax,
		RequireLease:  cfg.Consumer.RequireLease,
		RetryInterval: time.Duration(cfg.Producer.RetryIntervalMs) * time.Millisecond,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := q.Close(); err != nil {
			slog.Warn("queue close error", "err", err)
		}
	}()

	// ── 4. Dispatch subcommand ───────────────────────────────────────────────
	switch cmd := flag.Arg(0); cmd {
	case "put":
		return runPut(q, flag.Args()[1:], *wait)
	case "get":
		return runGet(q, *count)
	case "remove":
		return q.Remove(*count)
	case "pop":
		return runPop(q, *count)
	case "len":
		return runLen(q)
	case "":
		flag.Usage()
		return errors.New("missing command")
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// runPut appends one item per argument, or one per stdin line when no
// arguments are given. With --wait it blocks while the queue is full,
// giving up on SIGINT/SIGTERM.
func runPut(q *nque.Queue, args []string, wait bool) error {
	var items [][]byte
	if len(args) > 0 {
		for _, a := range args {
			items = append(items, []byte(a))
		}
	} else {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			line := make([]byte, len(sc.Bytes()))
			copy(line, sc.Bytes())
			items = append(items, line)
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}

	if !wait {
		return q.Put(items)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return q.PutWait(ctx, items)
}

func runGet(q *nque.Queue, n int) error {
	items, err := q.Get(n)
	if err != nil {
		return err
	}
	printItems(items)
	return nil
}

func runPop(q *nque.Queue, n int) error {
	items, err := q.Pop(n)
	if err != nil {
		return err
	}
	printItems(items)
	return nil
}

func runLen(q *nque.Queue) error {
	n, err := q.Len()
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func printItems(items [][]byte) {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, item := range items {
		w.Write(item)
		w.WriteByte('\n')
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
