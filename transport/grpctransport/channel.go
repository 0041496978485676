package grpctransport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/consts"
)

// Channel is a brpc.Channel over a gRPC connection.
type Channel struct {
	conn grpc.ClientConnInterface
}

var _ brpc.Channel = (*Channel)(nil)

func NewChannel(conn grpc.ClientConnInterface) *Channel {
	return &Channel{conn: conn}
}

func (c *Channel) CallMethod(ctx context.Context, method brpc.MethodRef, cntl *brpc.Controller) {
	var trailer metadata.MD
	resp := &frame{blocks: cntl.ResponseAttachment()}
	err := c.conn.Invoke(ctx, method.Path(),
		&frame{blocks: cntl.RequestAttachment()},
		resp,
		grpc.CallContentSubtype(consts.CodecName),
		grpc.Trailer(&trailer),
	)
	switch {
	case err != nil:
		cntl.ResponseAttachment().Reset()
		cntl.SetFailed(brpcCode(err, trailer), "%s", status.Convert(err).Message())
	case resp.err != nil:
		cntl.ResponseAttachment().Reset()
		cntl.SetFailed(frameCode(resp.err, brpc.ERESPONSE), "%s", resp.err.Error())
	}
}
