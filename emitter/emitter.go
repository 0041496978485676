// Package emitter renders the three bridge artifacts of a schema file: the
// transport schema, the C++ boundary shim and the Go binding.
package emitter

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/ozontech/brpcgen/consts"
	"github.com/ozontech/brpcgen/naming"
	"github.com/ozontech/brpcgen/schema"
)

const (
	defaultBindingPkg = "github.com/ozontech/brpcgen/binding"
	defaultSysPkg     = "github.com/ozontech/brpcgen/brpcsys"
)

//go:embed templates
var templatesFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"dispatchTypedef": func() string { return naming.DispatchTypedef },
	"contentType":     func() string { return consts.ContentType },
	"zeroCopy":        zeroCopyDecl,
	"nsOpen":          nsOpen,
	"nsClose":         nsClose,
}).ParseFS(templatesFS, "templates/*.tmpl"))

// ZeroCopyDecl is the C++ declaration of the zero-copy buffer classes
// shared by every shim and the brpcsys runtime.
func ZeroCopyDecl() string {
	return zeroCopyDecl()
}

func zeroCopyDecl() string {
	b, err := templatesFS.ReadFile("templates/zero_copy.h")
	if err != nil {
		panic(err)
	}
	return string(b)
}

func nsOpen(c naming.Context) string {
	if c.Package == "" {
		return ""
	}
	var sb strings.Builder
	for _, part := range strings.Split(c.Package, ".") {
		sb.WriteString("\nnamespace " + part + " {\n")
	}
	return sb.String()
}

func nsClose(c naming.Context) string {
	if c.Package == "" {
		return ""
	}
	parts := strings.Split(c.Package, ".")
	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		sb.WriteString("} // namespace " + parts[i] + "\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

type conf struct {
	bindingPkg string
	sysPkg     string
}

type Option func(*conf)

// WithRuntime overrides the import paths of the binding and brpcsys
// packages referenced by generated Go code.
func WithRuntime(bindingPkg, sysPkg string) Option {
	return func(c *conf) {
		c.bindingPkg = bindingPkg
		c.sysPkg = sysPkg
	}
}

type Emitter struct {
	log *zap.Logger
	conf
}

func New(log *zap.Logger, opts ...Option) *Emitter {
	c := conf{bindingPkg: defaultBindingPkg, sysPkg: defaultSysPkg}
	for _, o := range opts {
		o(&c)
	}
	return &Emitter{log: log.Named("emitter"), conf: c}
}

type templateService struct {
	schema.Service
	FullName string
	Sym      naming.Symbols
}

type templateData struct {
	Ctx      naming.Context
	Services []templateService
}

// Generate renders all artifacts of f in memory. Output is a pure function
// of f.
func (e *Emitter) Generate(f *schema.File) (Artifacts, error) {
	nc := naming.NewContext(f.Path, f.Package).WithGoPackage(f.GoPackageName)
	data := templateData{Ctx: nc}
	for _, s := range f.Services {
		data.Services = append(data.Services, templateService{
			Service:  s,
			FullName: nc.Qualify(s.Name),
			Sym:      nc.Service(s.Name),
		})
	}

	arts := make(Artifacts, 0, 3)
	for _, a := range []struct {
		kind     Kind
		name     string
		template string
	}{
		{TransportSchema, nc.TransportFile(), "transport.proto.tmpl"},
		{Shim, nc.ShimFile(), "shim.cc.tmpl"},
	} {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, a.template, data); err != nil {
			return nil, &GenerationError{Artifact: a.name, Err: err}
		}
		arts = append(arts, Artifact{Kind: a.kind, Name: a.name, Content: buf.Bytes()})
	}

	src, err := e.binding(nc, f)
	if err != nil {
		return nil, &GenerationError{Artifact: nc.BindingFile(), Err: err}
	}
	arts = append(arts, Artifact{Kind: Binding, Name: nc.BindingFile(), Content: src})

	for _, a := range arts {
		e.log.Debug("artifact rendered",
			zap.String("source", f.Path),
			zap.Stringer("kind", a.Kind),
			zap.String("name", a.Name),
			zap.Int("size", len(a.Content)),
		)
	}
	return arts, nil
}

// Emit renders f and commits the artifacts to out.
func (e *Emitter) Emit(f *schema.File, out Output) (Artifacts, error) {
	arts, err := e.Generate(f)
	if err != nil {
		return nil, err
	}
	if err := arts.WriteTo(out); err != nil {
		return nil, err
	}
	return arts, nil
}

type Kind uint8

const (
	TransportSchema Kind = iota
	Shim
	Binding
)

func (k Kind) String() string {
	switch k {
	case TransportSchema:
		return "transport-schema"
	case Shim:
		return "shim"
	case Binding:
		return "binding"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

type Artifact struct {
	Kind    Kind
	Name    string
	Content []byte
}

type Artifacts []Artifact

func (a Artifacts) Get(k Kind) (Artifact, bool) {
	for _, art := range a {
		if art.Kind == k {
			return art, true
		}
	}
	return Artifact{}, false
}

// WriteTo commits every artifact to out or none of them.
func (a Artifacts) WriteTo(out Output) error {
	return out.WriteArtifacts(a)
}

// GenerationError aborts the whole emission.
type GenerationError struct {
	Artifact string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Artifact, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
