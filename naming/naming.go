// Package naming derives every file and symbol name shared by the generated
// artifacts. Emission code must not format these names on its own.
package naming

import (
	"path"
	"strings"
)

const (
	ShimSuffix    = ".brpc.cc"
	BindingSuffix = ".brpc.go"
	HeaderSuffix  = ".pb.h"

	// DispatchTypedef is the C type of a registered dispatch function.
	DispatchTypedef = "brpc_dispatch_fn"
	// DispatchTrampoline is the exported Go function every generated
	// binding registers as its dispatch function.
	DispatchTrampoline = "brpcsys_dispatch"
)

// Context is computed once per schema file.
type Context struct {
	Path      string // schema file path as given
	BaseName  string // Path without extension
	Package   string
	LeafName  string // BaseName without directory
	goPackage string
}

func NewContext(filePath, pkg string) Context {
	base := strings.TrimSuffix(filePath, path.Ext(filePath))
	return Context{
		Path:     filePath,
		BaseName: base,
		Package:  pkg,
		LeafName: path.Base(base),
	}
}

// WithGoPackage overrides the Go package name of the binding.
func (c Context) WithGoPackage(name string) Context {
	c.goPackage = name
	return c
}

func (c Context) TransportFile() string {
	return c.Path
}

func (c Context) ShimFile() string {
	return c.BaseName + ShimSuffix
}

// BindingFile falls back to the leaf name for files without a package.
func (c Context) BindingFile() string {
	if c.Package == "" {
		return c.LeafName + BindingSuffix
	}
	return c.Package + BindingSuffix
}

// ShimInclude is the generated header of the transport schema.
func (c Context) ShimInclude() string {
	return c.LeafName + HeaderSuffix
}

func (c Context) CxxNamespace() string {
	return strings.ReplaceAll(c.Package, ".", "::")
}

func (c Context) GoPackage() string {
	if c.goPackage != "" {
		return c.goPackage
	}
	if c.Package == "" {
		return strings.NewReplacer("-", "_", ".", "_").Replace(c.LeafName)
	}
	if i := strings.LastIndexByte(c.Package, '.'); i >= 0 {
		return c.Package[i+1:]
	}
	return c.Package
}

// Qualify returns the fully qualified name of a service.
func (c Context) Qualify(service string) string {
	if c.Package == "" {
		return service
	}
	return c.Package + "." + service
}

// Service returns the symbol set of one service.
func (c Context) Service(name string) Symbols {
	return Symbols{ns: c.CxxNamespace(), name: name}
}

// Symbols names everything emitted for a single service.
type Symbols struct {
	ns   string
	name string
}

func (s Symbols) Name() string { return s.name }

// C surface of the shim.

func (s Symbols) ServiceNew() string      { return "brpc_" + s.name + "_service_new" }
func (s Symbols) ServiceDestroy() string  { return "brpc_" + s.name + "_service_destroy" }
func (s Symbols) StubWithChannel() string { return "brpc_" + s.name + "Stub_with_channel" }
func (s Symbols) StubDestroy() string     { return "brpc_" + s.name + "Stub_destroy" }

func (s Symbols) SetHandler(method string) string {
	return "brpc_" + s.name + "_" + method + "_set_handler"
}

func (s Symbols) StubCall(method string) string {
	return "brpc_" + s.name + "Stub_" + method
}

// C++ helpers.

func (s Symbols) Impl() string          { return s.name + "Impl" }
func (s Symbols) CxxStub() string       { return s.name + "_Stub" }
func (s Symbols) ServiceHandle() string { return "brpc_" + s.name + "_service_t" }
func (s Symbols) StubHandle() string    { return "brpc_" + s.name + "_stub_t" }

func (s Symbols) QualifiedImpl() string    { return s.qualify(s.Impl()) }
func (s Symbols) QualifiedCxxStub() string { return s.qualify(s.CxxStub()) }

func (s Symbols) DispatchSlot(method string) string { return method + "_dispatch" }
func (s Symbols) ContextSlot(method string) string  { return method + "_context" }

func (s Symbols) qualify(name string) string {
	if s.ns == "" {
		return name
	}
	return s.ns + "::" + name
}

// Go wrappers.

func (s Symbols) GoService() string            { return s.name }
func (s Symbols) GoStub() string               { return s.name + "Stub" }
func (s Symbols) GoServiceCtor() string        { return "New" + s.name }
func (s Symbols) GoStubCtor() string           { return "New" + s.name + "StubWithChannel" }
func (s Symbols) GoSetHandler(m string) string { return "Set" + m + "Handler" }

// Exported lists the C symbols of the shim in emission order.
func (s Symbols) Exported(methods []string) []string {
	out := []string{s.ServiceNew(), s.ServiceDestroy(), s.StubWithChannel(), s.StubDestroy()}
	for _, m := range methods {
		out = append(out, s.SetHandler(m), s.StubCall(m))
	}
	return out
}
