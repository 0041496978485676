package main

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/schema"
	"github.com/ozontech/brpcgen/transport/grpctransport"
	"github.com/ozontech/brpcgen/transport/h2ctransport"
)

type transportKind string

const (
	transportH2C  transportKind = "h2c"
	transportGRPC transportKind = "grpc"
)

// Target is the bridged method a command talks to.
type Target struct {
	Method string `arg:"" help:"Method as package.Service.Method or /package.Service/Method."`
	Data   string `default:"{}" help:"Request message as JSON."`

	Addr      string        `group:"target" required:"" placeholder:"localhost:8000" help:"Address of the bridged server."`
	Transport transportKind `group:"target" enum:"h2c,grpc" default:"h2c" help:"Transport. Available types: ${enum}"`
	Timeout   time.Duration `group:"target" default:"11s" help:"Call timeout."`

	Proto      []string `group:"schema" required:"" placeholder:"service1.proto" help:"Proto files declaring the method."`
	ImportPath []string `group:"schema" type:"existingdir" placeholder:"./api/,./vendor/" help:"Proto import paths."`
}

func (t *Target) resolve() (brpc.MethodRef, protoreflect.MethodDescriptor, error) {
	ref, ok := brpc.ParseMethodRef(t.Method)
	if !ok {
		return brpc.MethodRef{}, nil, fmt.Errorf("malformed method %q", t.Method)
	}

	fds, err := schema.NewLocalLoader(t.Proto, t.ImportPath).Descriptors()
	if err != nil {
		return brpc.MethodRef{}, nil, err
	}
	for _, fd := range fds {
		sd := fd.FindService(ref.Service)
		if sd == nil {
			continue
		}
		md := sd.FindMethodByName(ref.Method)
		if md == nil {
			return brpc.MethodRef{}, nil, fmt.Errorf("service %s has no method %s", ref.Service, ref.Method)
		}
		return ref, md.UnwrapMethod(), nil
	}
	return brpc.MethodRef{}, nil, fmt.Errorf("service %s not found", ref.Service)
}

func (t *Target) request(md protoreflect.MethodDescriptor) (proto.Message, error) {
	req := dynamicpb.NewMessage(md.Input())
	if err := protojson.Unmarshal([]byte(t.Data), req); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return req, nil
}

func (t *Target) dial() (brpc.Channel, func() error, error) {
	switch t.Transport {
	case transportH2C:
		return h2ctransport.NewChannel(t.Addr), func() error { return nil }, nil
	case transportGRPC:
		conn, err := grpc.NewClient(
			t.Addr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithUserAgent("brpcgen"),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("dialing: %w", err)
		}
		return grpctransport.NewChannel(conn), conn.Close, nil
	default:
		return nil, nil, errors.New("unknown transport " + string(t.Transport))
	}
}
