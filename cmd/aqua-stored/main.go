package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"xdao.co/aqua/internal/config"
	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/grpcstore"
	"xdao.co/aqua/storage/registry"

	_ "xdao.co/aqua/storage/localfs"
	_ "xdao.co/aqua/storage/memstore"
	_ "xdao.co/aqua/storage/sqlitestore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("aqua-stored", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file")
	listen := fs.String("listen", config.DefaultListen, "listen address")
	backend := fs.String("backend", config.DefaultBackend, "storage backend name")
	logLevel := fs.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", config.DefaultLogFormat, "log format (text, json)")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	binding := registry.RegisterFlags(fs, registry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *listBackends {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}
	// Explicit flags win over the file.
	if fs.Changed("listen") || *configPath == "" {
		cfg.Listen = *listen
	}
	if fs.Changed("log-level") || *configPath == "" {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("log-format") || *configPath == "" {
		cfg.LogFormat = *logFormat
	}
	useFlags := fs.Changed("backend") || *configPath == ""
	if useFlags {
		cfg.Backend = config.Backend{Name: *backend}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	log, err := cfg.Logger(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	open := cfg.OpenStorage
	if useFlags {
		open = func(registry.Usage) (storage.Storage[string], func() error, error) {
			return binding.Open(cfg.Backend.Name)
		}
	}
	store, closeFn, err := open(registry.UsageDaemon)
	if err != nil {
		log.Error("open backend", "backend", cfg.Backend.Name, "err", err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Error("listen", "addr", cfg.Listen, "err", err)
		return 1
	}

	s := grpc.NewServer()
	grpcstore.RegisterStorageServer(s, &grpcstore.Server{Storage: store, Logger: log})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		s.GracefulStop()
	}()

	log.Info("aqua-stored listening", "addr", lis.Addr().String(), "backend", cfg.Backend.Name)
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		log.Error("serve", "err", err)
		return 1
	}
	return 0
}
