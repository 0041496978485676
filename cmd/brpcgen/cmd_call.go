package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/ozontech/brpcgen/brpc"
)

type CallCommand struct {
	Target
}

func (c *CallCommand) Run(ctx context.Context, log *zap.Logger, w io.Writer) (err error) {
	ref, md, err := c.resolve()
	if err != nil {
		return err
	}
	req, err := c.request(md)
	if err != nil {
		return err
	}

	ch, closeCh, err := c.dial()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeCh()) }()

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cntl := brpc.NewController()
	defer cntl.Reset()
	if err := brpc.Encode(cntl.RequestBuf(), req); err != nil {
		return err
	}

	ch.CallMethod(ctx, ref, cntl)
	log.Debug("call finished",
		zap.Stringer("method", ref),
		zap.String("request", humanize.Bytes(uint64(cntl.RequestAttachment().Len()))),
		zap.String("response", humanize.Bytes(uint64(cntl.ResponseAttachment().Len()))),
	)
	if err := cntl.Err(); err != nil {
		return err
	}

	resp := dynamicpb.NewMessage(md.Output())
	if err := brpc.Decode(cntl.ResponseBuf(), resp); err != nil {
		return err
	}
	b, err := protojson.MarshalOptions{Multiline: true}.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
