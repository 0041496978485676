package grpctransport

import (
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/ozontech/brpcgen/brpc"
	"github.com/ozontech/brpcgen/consts"
)

func grpcCode(code brpc.ErrorCode) codes.Code {
	switch code {
	case brpc.ENOSERVICE, brpc.ENOMETHOD:
		return codes.Unimplemented
	case brpc.EREQUEST:
		return codes.InvalidArgument
	case brpc.ERPCTIMEDOUT:
		return codes.DeadlineExceeded
	case brpc.ECLOSE:
		return codes.Canceled
	case brpc.ELIMIT, brpc.EOVERCROWDED:
		return codes.ResourceExhausted
	case brpc.EFAILEDSOCKET, brpc.ELOGOFF:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// brpcCode prefers the code sent in the trailer and falls back to the
// gRPC status of err.
func brpcCode(err error, trailer metadata.MD) brpc.ErrorCode {
	if v := trailer.Get(consts.ErrorCodeHeader); len(v) > 0 {
		if code, perr := strconv.ParseInt(v[0], 10, 32); perr == nil {
			return brpc.FromCode(int32(code))
		}
	}

	switch status.Code(err) {
	case codes.Unimplemented:
		return brpc.ENOMETHOD
	case codes.InvalidArgument:
		return brpc.EREQUEST
	case codes.DeadlineExceeded:
		return brpc.ERPCTIMEDOUT
	case codes.Canceled:
		return brpc.ECLOSE
	case codes.ResourceExhausted:
		return brpc.ELIMIT
	case codes.Unavailable:
		return brpc.EFAILEDSOCKET
	case codes.Internal:
		return brpc.EINTERNAL
	default:
		return brpc.UNKNOWN
	}
}
