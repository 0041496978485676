// Package schema holds the service model the generator works from.
package schema

import (
	"path"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// File is one schema file. Services and methods keep their schema order.
type File struct {
	Path          string
	Package       string
	GoImportPath  string
	GoPackageName string
	Services      []Service
}

type Service struct {
	Name    string
	Methods []Method
}

type Method struct {
	Name   string
	Input  TypeRef
	Output TypeRef
}

// TypeRef references a message type.
type TypeRef struct {
	Name         string // Go identifier, nested messages are joined with '_'
	FullName     string
	GoImportPath string
}

func (s Service) FullName(pkg string) string {
	if pkg == "" {
		return s.Name
	}
	return pkg + "." + s.Name
}

func (s Service) Method(name string) (Method, bool) {
	for _, m := range s.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

func (s Service) MethodNames() []string {
	names := make([]string, len(s.Methods))
	for i, m := range s.Methods {
		names[i] = m.Name
	}
	return names
}

func (f *File) Service(name string) (Service, bool) {
	for _, s := range f.Services {
		if s.Name == name {
			return s, true
		}
	}
	return Service{}, false
}

func FromDesc(fd *desc.FileDescriptor) *File {
	return FromProtoreflect(fd.UnwrapFile())
}

func FromProtoreflect(fd protoreflect.FileDescriptor) *File {
	f := &File{
		Path:    fd.Path(),
		Package: string(fd.Package()),
	}
	f.GoImportPath, f.GoPackageName = goPackage(fd)

	services := fd.Services()
	for i := 0; i < services.Len(); i++ {
		sd := services.Get(i)
		s := Service{Name: string(sd.Name())}

		methods := sd.Methods()
		for j := 0; j < methods.Len(); j++ {
			md := methods.Get(j)
			s.Methods = append(s.Methods, Method{
				Name:   string(md.Name()),
				Input:  typeRef(md.Input()),
				Output: typeRef(md.Output()),
			})
		}
		f.Services = append(f.Services, s)
	}
	return f
}

func typeRef(md protoreflect.MessageDescriptor) TypeRef {
	file := md.ParentFile()
	name := strings.TrimPrefix(string(md.FullName()), string(file.Package())+".")
	importPath, _ := goPackage(file)
	return TypeRef{
		Name:         strings.ReplaceAll(name, ".", "_"),
		FullName:     string(md.FullName()),
		GoImportPath: importPath,
	}
}

// goPackage разбирает опцию go_package вида "path;name" или "path".
func goPackage(fd protoreflect.FileDescriptor) (importPath, name string) {
	opts, ok := fd.Options().(*descriptorpb.FileOptions)
	if !ok || opts.GetGoPackage() == "" {
		return "", ""
	}

	importPath, name, found := strings.Cut(opts.GetGoPackage(), ";")
	if !found {
		name = path.Base(importPath)
	}
	name = strings.NewReplacer("-", "_", ".", "_").Replace(name)
	return importPath, name
}
