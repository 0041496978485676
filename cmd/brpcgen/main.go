package main

import (
	"context"
	"io"
	"net/http"
	_ "net/http/pprof" //nolint:gosec
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	mangokong "github.com/alecthomas/mango-kong"
	"go.uber.org/zap"
)

var CLI struct {
	Generate    GenerateCommand   `cmd:"" help:"Generate bridge artifacts for schema files."`
	Call        CallCommand       `cmd:"" help:"Call a bridged method once."`
	Bench       BenchCommand      `cmd:"" help:"Put load on a bridged method."`
	Man         mangokong.ManFlag `help:"Write man page." hidden:""`
	Verbose     bool              `short:"v" help:"Verbose output."`
	DebugServer bool              `help:"Enable pprof debug server on :8081."`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(
		&CLI,
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
		kong.Groups(map[string]string{
			"schema": `Schema flags:`,
			"target": `Target flags:`,
			"rps":    `Rate flags:`,
		}),
		kong.ConfigureHelp(kong.HelpOptions{
			Tree:    true,
			Compact: true,
		}),
		kong.Description(`brpc bridge generator

Generates the transport schema, the C++ shim and the Go binding that let Go handlers serve and call brpc services, and talks to bridged services for debugging and load.
		`),
	)

	log := zap.NewNop()
	if CLI.Verbose {
		log = zap.Must(zap.NewDevelopment())
	}
	defer log.Sync() //nolint:errcheck

	if CLI.DebugServer {
		go func() {
			http.ListenAndServe(":8081", nil) //nolint:errcheck,gosec
		}()
	}

	err := kongCtx.Run(log)
	kongCtx.FatalIfErrorf(err)
}
