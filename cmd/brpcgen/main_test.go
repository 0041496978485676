package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ozontech/brpcgen/binding"
	"github.com/ozontech/brpcgen/bridge"
	"github.com/ozontech/brpcgen/consts"
	"github.com/ozontech/brpcgen/schema"
	"github.com/ozontech/brpcgen/transport/h2ctransport"
)

const echoProto = `syntax = "proto3";

package demo;

import "google/protobuf/wrappers.proto";

option go_package = "example.com/demo;demo";

service Echo {
  rpc Say(google.protobuf.StringValue) returns (google.protobuf.StringValue);
}
`

func writeProto(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.proto"), []byte(echoProto), 0o644))
	return dir
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	src, out := writeProto(t), t.TempDir()
	cmd := &GenerateCommand{Proto: []string{"echo.proto"}, ImportPath: []string{src}, Out: out}
	require.NoError(t, cmd.Validate())
	require.NoError(t, cmd.Run(context.Background(), zaptest.NewLogger(t)))

	for _, name := range []string{"echo.proto", "echo.brpc.cc", "demo.brpc.go"} {
		b, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err, name)
		assert.True(bytes.HasPrefix(b, []byte("// Code generated by protoc-gen-brpc. DO NOT EDIT.")), name)
	}
}

func TestGenerateRefusesToOverwriteInput(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	src := writeProto(t)
	cmd := &GenerateCommand{Proto: []string{"echo.proto"}, ImportPath: []string{src}, Out: src}
	err := cmd.Run(context.Background(), zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(err.Error(), "refusing to overwrite")

	b, err := os.ReadFile(filepath.Join(src, "echo.proto"))
	require.NoError(t, err)
	assert.Equal(echoProto, string(b))

	entries, err := os.ReadDir(src)
	require.NoError(t, err)
	assert.Len(entries, 1)
}

func TestGenerateDryRun(t *testing.T) {
	t.Parallel()

	src, out := writeProto(t), t.TempDir()
	cmd := &GenerateCommand{Proto: []string{"echo.proto"}, ImportPath: []string{src}, Out: out, DryRun: true}
	require.NoError(t, cmd.Run(context.Background(), zaptest.NewLogger(t)))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateValidate(t *testing.T) {
	t.Parallel()
	assert.Error(t, (&GenerateCommand{}).Validate())
}

func startEcho(t *testing.T) string {
	t.Helper()

	desc := schema.Service{Name: "Echo", Methods: []schema.Method{{Name: "Say"}}}
	svc := bridge.NewService("demo", desc)
	require.NoError(t, binding.SetHandler(svc, "Say", func(req, resp *wrapperspb.StringValue) error {
		resp.Value = "echo: " + req.GetValue()
		return nil
	}))
	mux := bridge.NewMux()
	require.NoError(t, mux.Register(svc))

	ts := httptest.NewServer(h2ctransport.NewServer(mux).Handler())
	t.Cleanup(ts.Close)
	return strings.TrimPrefix(ts.URL, "http://")
}

func target(t *testing.T, addr, method string) Target {
	t.Helper()
	return Target{
		Method:     method,
		Data:       `"hi"`,
		Addr:       addr,
		Transport:  transportH2C,
		Timeout:    consts.DefaultTimeout,
		Proto:      []string{"echo.proto"},
		ImportPath: []string{writeProto(t)},
	}
}

func TestCall(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := &CallCommand{Target: target(t, startEcho(t), "demo.Echo.Say")}
	require.NoError(t, cmd.Run(context.Background(), zaptest.NewLogger(t), &out))
	assert.Equal(t, "\"echo: hi\"\n", out.String())
}

func TestCallErrors(t *testing.T) {
	t.Parallel()
	addr := startEcho(t)

	tests := []struct {
		name   string
		method string
		data   string
		err    string
	}{
		{"malformed method", "Say", `"hi"`, "malformed method"},
		{"unknown service", "demo.Other.Say", `"hi"`, "service demo.Other not found"},
		{"unknown method", "demo.Echo.Shout", `"hi"`, "has no method Shout"},
		{"bad json", "demo.Echo.Say", `{`, "parse request"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tgt := target(t, addr, tc.method)
			tgt.Data = tc.data
			err := (&CallCommand{Target: tgt}).Run(context.Background(), zaptest.NewLogger(t), new(bytes.Buffer))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestBench(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	phout := filepath.Join(t.TempDir(), "phout.log")
	cmd := &BenchCommand{
		Target:   target(t, startEcho(t), "/demo.Echo/Say"),
		Clients:  2,
		Count:    20,
		Phout:    phout,
		Interval: time.Hour,
	}
	require.NoError(t, cmd.Validate())

	var out bytes.Buffer
	require.NoError(t, cmd.Run(context.Background(), zaptest.NewLogger(t), &out))
	assert.Contains(out.String(), "total total=20 ok=20 nook=0 req=20")

	b, err := os.ReadFile(phout)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.Len(lines, 20)
	for _, l := range lines {
		assert.True(strings.HasSuffix(l, "\tbrpc_0"), l)
	}
}

func TestBenchValidate(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	assert.Error((&BenchCommand{}).Validate())
	assert.Error((&BenchCommand{Clients: 1, RPSTo: 10}).Validate())
	assert.NoError((&BenchCommand{Clients: 1, RPSTo: 10, Ramp: time.Second}).Validate())
}
