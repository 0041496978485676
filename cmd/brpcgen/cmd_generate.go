package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ozontech/brpcgen/emitter"
	"github.com/ozontech/brpcgen/schema"
)

type GenerateCommand struct {
	Proto          []string `group:"schema" xor:"source" placeholder:"service1.proto,service2.proto" help:"Proto files."`
	ImportPath     []string `group:"schema" type:"existingdir" placeholder:"./api/,./vendor/" help:"Proto import paths."`
	ReflectionAddr string   `group:"schema" xor:"source" placeholder:"my-service:9090" help:"Address of reflection api."`

	Out    string `type:"path" default:"." help:"Output directory."`
	DryRun bool   `help:"Render artifacts without writing them."`
}

func (c *GenerateCommand) Validate() error {
	if len(c.Proto) == 0 && c.ReflectionAddr == "" {
		return errors.New("--proto or --reflection-addr is required")
	}
	return nil
}

func (c *GenerateCommand) Run(ctx context.Context, log *zap.Logger) error {
	files, err := c.load(ctx, log)
	if err != nil {
		return err
	}

	inputs := c.inputs()
	em := emitter.New(log)
	var out emitter.Output = emitter.NewDirOutput(c.Out)
	if c.DryRun {
		out = emitter.NewMemOutput()
	}

	for _, f := range files {
		arts, err := em.Generate(f)
		if err != nil {
			return err
		}
		for _, a := range arts {
			dst, err := filepath.Abs(filepath.Join(c.Out, filepath.FromSlash(a.Name)))
			if err != nil {
				return err
			}
			if inputs[dst] {
				return fmt.Errorf("refusing to overwrite input file %s with the %s artifact, choose another --out", dst, a.Kind)
			}
		}
		if err := arts.WriteTo(out); err != nil {
			return err
		}
		for _, a := range arts {
			log.Info("artifact generated",
				zap.String("source", f.Path),
				zap.Stringer("kind", a.Kind),
				zap.String("file", filepath.Join(c.Out, a.Name)),
				zap.String("size", humanize.Bytes(uint64(len(a.Content)))),
			)
		}
	}
	return nil
}

func (c *GenerateCommand) load(ctx context.Context, log *zap.Logger) ([]*schema.File, error) {
	if c.ReflectionAddr == "" {
		files, err := schema.NewLocalLoader(c.Proto, c.ImportPath).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("local reflection fetching: %w", err)
		}
		return files, nil
	}

	conn, err := grpc.NewClient(
		c.ReflectionAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent("brpcgen"),
	)
	if err != nil {
		return nil, fmt.Errorf("create reflection conn: %w", err)
	}
	defer conn.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	loader := schema.NewRemoteLoader(conn)
	files, err := loader.Load(fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("remote reflection fetching: %w", err)
	}
	for _, warn := range loader.Warnings() {
		log.Warn("remote reflection fetching", zap.String("warning", warn))
	}
	return files, nil
}

// inputs returns absolute paths of every local file the proto names may
// resolve to.
func (c *GenerateCommand) inputs() map[string]bool {
	out := make(map[string]bool)
	for _, name := range c.Proto {
		candidates := []string{name}
		for _, dir := range c.ImportPath {
			candidates = append(candidates, filepath.Join(dir, name))
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if abs, err := filepath.Abs(p); err == nil {
				out[abs] = true
			}
		}
	}
	return out
}
