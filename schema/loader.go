package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/grpcreflect"
	"google.golang.org/grpc"
)

type Loader interface {
	Load(ctx context.Context) ([]*File, error)
}

type ErrLoader struct {
	err error
}

func NewErrLoader(err error) *ErrLoader {
	return &ErrLoader{err}
}

func (l *ErrLoader) Load(context.Context) ([]*File, error) {
	return nil, l.err
}

type CachedLoader struct {
	next  Loader
	once  *sync.Once
	files []*File
	err   error
}

func NewCachedLoader(next Loader) *CachedLoader {
	return &CachedLoader{next: next, once: new(sync.Once)}
}

func (l *CachedLoader) Load(ctx context.Context) ([]*File, error) {
	l.once.Do(func() {
		l.files, l.err = l.next.Load(ctx)
	})
	return l.files, l.err
}

// LocalLoader parses .proto files. Only the requested files are returned,
// their imports are resolved but not emitted.
type LocalLoader struct {
	filenames   []string
	importPaths []string
	accessor    protoparse.FileAccessor
}

func NewLocalLoader(filenames, importPaths []string) LocalLoader {
	return LocalLoader{filenames: filenames, importPaths: importPaths}
}

// NewLocalLoaderFromMap parses in-memory sources keyed by file name.
func NewLocalLoaderFromMap(sources map[string]string, filenames ...string) LocalLoader {
	return LocalLoader{
		filenames: filenames,
		accessor:  protoparse.FileContentsFromMap(sources),
	}
}

func (l LocalLoader) Descriptors() ([]*desc.FileDescriptor, error) {
	fds, err := protoparse.Parser{
		LookupImport: desc.LoadFileDescriptor,
		ImportPaths:  l.importPaths,
		Accessor:     l.accessor,
	}.ParseFiles(l.filenames...)
	if err != nil {
		return nil, fmt.Errorf("can't parse proto files: %w", err)
	}
	return fds, nil
}

func (l LocalLoader) Load(context.Context) ([]*File, error) {
	fds, err := l.Descriptors()
	if err != nil {
		return nil, err
	}

	files := make([]*File, len(fds))
	for i, fd := range fds {
		files[i] = FromDesc(fd)
	}
	return files, nil
}

// RemoteLoader fetches schemas over gRPC server reflection and groups the
// services by the file declaring them.
type RemoteLoader struct {
	conn  grpc.ClientConnInterface
	warns []string
}

func NewRemoteLoader(conn grpc.ClientConnInterface) *RemoteLoader {
	return &RemoteLoader{conn: conn}
}

func (l *RemoteLoader) Warnings() []string {
	return l.warns
}

func (l *RemoteLoader) Load(ctx context.Context) ([]*File, error) {
	refClient := grpcreflect.NewClientAuto(ctx, l.conn)
	defer refClient.Reset()

	listServices, err := refClient.ListServices()
	if err != nil {
		return nil, fmt.Errorf("reflection fetching: %w", err)
	}

	var files []*File
	seen := make(map[string]bool)
	for _, s := range listServices {
		if strings.HasPrefix(s, "grpc.reflection.") {
			continue
		}
		service, err := refClient.ResolveService(s)
		if err != nil {
			l.warns = append(l.warns, "service not found: "+s)
			continue
		}

		fd := service.GetFile()
		if seen[fd.GetName()] {
			continue
		}
		seen[fd.GetName()] = true
		files = append(files, FromDesc(fd))
	}
	return files, nil
}
