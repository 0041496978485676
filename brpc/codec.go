package brpc

import (
	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"

	"github.com/ozontech/brpcgen/zerocopy"
)

var decodeOptions = protodelim.UnmarshalOptions{MaxSize: -1}

// Encode writes m as a varint length-delimited message and flushes b.
func Encode(b zerocopy.BufMut, m proto.Message) error {
	_, err := protodelim.MarshalTo(zerocopy.NewBufWriter(b), m)
	b.Flush()
	if err != nil {
		return Wrap(ESERIALIZE, err)
	}
	return nil
}

// Decode reads one varint length-delimited message. A frame lying in a
// single block is unmarshaled in place.
func Decode(b zerocopy.Buf, m proto.Message) error {
	if w := b.Window(); len(w) > 0 {
		size, n := protowire.ConsumeVarint(w)
		if n > 0 && size <= uint64(len(w)-n) {
			if err := proto.Unmarshal(w[n:n+int(size)], m); err != nil {
				return Wrap(EDESERIALIZE, err)
			}
			b.Advance(n + int(size))
			return nil
		}
	}

	if err := decodeOptions.UnmarshalFrom(zerocopy.NewBufReader(b), m); err != nil {
		return Wrap(EDESERIALIZE, err)
	}
	return nil
}
