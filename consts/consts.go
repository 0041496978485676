package consts

import (
	"math"
	"time"
)

const (
	DefaultBlockSize   = 8192 // DefaultBlockSize - размер блока вложения, как у butil::IOBuf.
	DefaultTimeout     = 11 * time.Second
	DefaultIdleTimeout = time.Minute

	// WriterCapacity - емкость писателя: хранилище растет по требованию, поэтому верхней границы нет.
	WriterCapacity = math.MaxUint64

	ContentType     = "application/octet-stream"
	ErrorCodeHeader = "x-brpc-error-code"
	CodecName       = "brpc"
)
