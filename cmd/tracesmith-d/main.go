package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tracesmith/tracesmith/pkg/api"
	"github.com/tracesmith/tracesmith/pkg/store"
	"github.com/tracesmith/tracesmith/pkg/store/redis"
)

func main() {
	fmt.Println(`{"level":"info","msg":"system_started","component":"tracesmith-d"}`)

	config, err := LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Printf(`{"level":"fatal","msg":"failed_to_load_config","error":"%v"}`+"\n", err)
		os.Exit(1)
	}

	var (
		ds      store.DatasetStore
		cleanup func() error
	)
	switch config.Backend {
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: config.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			fmt.Printf(`{"level":"fatal","msg":"failed_to_connect_redis","addr":"%s","error":"%v"}`+"\n", config.RedisAddr, err)
			os.Exit(1)
		}
		ds = redis.NewDatasetStore(client)
		cleanup = client.Close
		fmt.Printf(`{"level":"info","msg":"store_initialized","backend":"redis","addr":"%s"}`+"\n", config.RedisAddr)
	default:
		st, err := store.NewStore(config.DBPath)
		if err != nil {
			fmt.Printf(`{"level":"fatal","msg":"failed_to_init_store","error":"%v"}`+"\n", err)
			os.Exit(1)
		}
		ds = st
		cleanup = st.Close
		fmt.Printf(`{"level":"info","msg":"store_initialized","backend":"sqlite","path":"%s"}`+"\n", config.DBPath)
	}

	server := api.NewServer(ds, config.Addr)
	go func() {
		if err := server.Start(); err != nil {
			fmt.Printf(`{"level":"fatal","msg":"server_failed","error":"%v"}`+"\n", err)
			os.Exit(1)
		}
	}()

	// Handle SIGINT/SIGTERM for graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigs
	fmt.Printf(`{"level":"info","msg":"shutdown_initiated","signal":"%s"}`+"\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_stop_server","error":"%v"}`+"\n", err)
	}

	if err := cleanup(); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_close_store","error":"%v"}`+"\n", err)
	} else {
		fmt.Println(`{"level":"info","msg":"store_closed"}`)
	}

	fmt.Println(`{"level":"info","msg":"shutdown_complete"}`)
}
