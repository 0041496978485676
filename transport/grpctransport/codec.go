package grpctransport

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/encoding"

	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/consts"
	"github.com/ozontech/brpcgen/zerocopy"
)

func init() {
	encoding.RegisterCodec(codec{})
}

// frame carries an attachment as the raw gRPC message body.
type frame struct {
	blocks *zerocopy.Blocks
	err    error // Unmarshal error, checked by the caller after RecvMsg
}

// frameCode maps a storage error of a received frame to its brpc code.
func frameCode(err error, fallback brpc.ErrorCode) brpc.ErrorCode {
	if errors.Is(err, zerocopy.ErrLimitExceeded) {
		return brpc.ELIMIT
	}
	return fallback
}

// codec passes attachments through untouched. It is selected by the
// "application/grpc+brpc" content subtype.
type codec struct{}

func (codec) Name() string { return consts.CodecName }

func (codec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*frame)
	if !ok {
		return nil, fmt.Errorf("brpc codec: unexpected message %T", v)
	}
	return f.blocks.Bytes(), nil
}

func (codec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*frame)
	if !ok {
		return fmt.Errorf("brpc codec: unexpected message %T", v)
	}
	// data принадлежит grpc и может быть переиспользован.
	// Ошибка хранилища не возвращается: grpc превратил бы её в codes.Internal
	_, f.err = f.blocks.Write(data)
	return nil
}
