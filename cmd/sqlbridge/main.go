// sqlbridge serves the bridge protocol over HTTP/JSON and gRPC for
// out-of-process hosts. Both surfaces run against one shared service, so
// a client gets identical behavior on either.
package main

import (
	"net"
	"net/http"
	"os"

	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"google.golang.org/grpc"

	"github.com/bangonkali/sqlbridge/internal/bridge"
	"github.com/bangonkali/sqlbridge/internal/config"
	"github.com/bangonkali/sqlbridge/internal/grpcapi"
	"github.com/bangonkali/sqlbridge/internal/httpapi"
	"github.com/bangonkali/sqlbridge/internal/protocol"
)

var opts struct {
	Config   string `short:"f" long:"config" env:"SQLBRIDGE_CONFIG" description:"yaml config file"`
	DataDir  string `short:"d" long:"data-dir" env:"SQLBRIDGE_DATA_DIR" description:"database files directory (overrides config)"`
	HTTPAddr string `long:"http" env:"SQLBRIDGE_HTTP" description:"HTTP listen address (overrides config)"`
	GRPCAddr string `long:"grpc" env:"SQLBRIDGE_GRPC" description:"gRPC listen address (overrides config)"`
	Dbg      bool   `long:"dbg" env:"DEBUG" description:"debug mode"`
}

var revision = "unknown"

func main() {
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		if err.(*flags.Error).Type != flags.ErrHelp {
			os.Exit(2)
		}
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		lgr.Printf("[PANIC] %v", err)
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.HTTPAddr != "" {
		cfg.HTTPAddr = opts.HTTPAddr
	}
	if opts.GRPCAddr != "" {
		cfg.GRPCAddr = opts.GRPCAddr
	}
	setupLog(opts.Dbg || cfg.Debug)
	lgr.Printf("[INFO] sqlbridge %s, data dir %s", revision, cfg.DataDir)

	reg := bridge.NewRegistry(cfg.DataDir)
	defer func() {
		if err := reg.CloseAll(); err != nil {
			lgr.Printf("[WARN] shutdown: %v", err)
		}
	}()
	svc := protocol.NewService(reg, cfg.TempDir)
	svc.AutoActivate(cfg.AutoExtensions)

	grpcapi.RegisterCodec()
	if cfg.GRPCAddr != "" {
		go func() {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				lgr.Printf("[ERROR] gRPC listen: %v", err)
				return
			}
			gs := grpc.NewServer()
			grpcapi.Register(gs, svc)
			lgr.Printf("[INFO] gRPC listening on %s", cfg.GRPCAddr)
			if err := gs.Serve(lis); err != nil {
				lgr.Printf("[ERROR] gRPC serve: %v", err)
			}
		}()
	}

	if cfg.HTTPAddr != "" {
		lgr.Printf("[INFO] HTTP listening on %s", cfg.HTTPAddr)
		if err := http.ListenAndServe(cfg.HTTPAddr, httpapi.New(svc).Routes()); err != nil {
			lgr.Printf("[PANIC] HTTP serve: %v", err)
		}
	} else {
		// gRPC only, block forever
		select {}
	}
}

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc,
			lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}
	lgr.SetupStdLogger(logOpts...)
}
