package schema

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	TransportRequest  = "HttpRequest"
	TransportResponse = "HttpResponse"
)

// TransportDescriptor builds the transport schema of f: every method takes
// an empty request and returns an empty response, the payload travels in
// the call attachments.
func TransportDescriptor(f *File) (protoreflect.FileDescriptor, error) {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String(f.Path),
		Syntax:  proto.String("proto2"),
		Options: &descriptorpb.FileOptions{CcGenericServices: proto.Bool(true)},
		MessageType: []*descriptorpb.DescriptorProto{
			{Name: proto.String(TransportRequest)},
			{Name: proto.String(TransportResponse)},
		},
	}
	if f.Package != "" {
		fdp.Package = proto.String(f.Package)
	}

	in, out := qualify(f.Package, TransportRequest), qualify(f.Package, TransportResponse)
	for _, s := range f.Services {
		sdp := &descriptorpb.ServiceDescriptorProto{Name: proto.String(s.Name)}
		for _, m := range s.Methods {
			sdp.Method = append(sdp.Method, &descriptorpb.MethodDescriptorProto{
				Name:       proto.String(m.Name),
				InputType:  proto.String(in),
				OutputType: proto.String(out),
			})
		}
		fdp.Service = append(fdp.Service, sdp)
	}

	fd, err := protodesc.NewFile(fdp, nil)
	if err != nil {
		return nil, fmt.Errorf("transport descriptor of %s: %w", f.Path, err)
	}
	return fd, nil
}

// TransportRegistry registers the transport descriptors of files.
func TransportRegistry(files ...*File) (*protoregistry.Files, error) {
	reg := new(protoregistry.Files)
	for _, f := range files {
		fd, err := TransportDescriptor(f)
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterFile(fd); err != nil {
			return nil, fmt.Errorf("register %s: %w", f.Path, err)
		}
	}
	return reg, nil
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return "." + name
	}
	return "." + pkg + "." + name
}
