package emitter

import (
	"bytes"
	"fmt"
	"strings"

	j "github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"

	"github.com/ozontech/brpcgen/naming"
	"github.com/ozontech/brpcgen/schema"
)

func (e *Emitter) binding(nc naming.Context, f *schema.File) ([]byte, error) {
	var jf *j.File
	if f.GoImportPath != "" {
		jf = j.NewFilePathName(f.GoImportPath, nc.GoPackage())
	} else {
		jf = j.NewFile(nc.GoPackage())
	}
	jf.HeaderComment("Code generated by protoc-gen-brpc. DO NOT EDIT.")
	jf.HeaderComment("source: " + nc.Path)
	jf.CgoPreamble(preamble(nc, f))

	for _, s := range f.Services {
		e.bindService(jf, nc, s)
		e.bindStub(jf, nc, s)
	}

	var buf bytes.Buffer
	if err := jf.Render(&buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	src, err := imports.Process(nc.BindingFile(), buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("format: %w", err)
	}
	return src, nil
}

// preamble declares the shim surface for cgo.
func preamble(nc naming.Context, f *schema.File) string {
	var sb strings.Builder
	sb.WriteString("#cgo CXXFLAGS: -std=c++11\n\n")
	fmt.Fprintf(&sb, "typedef int (*%s)(void *, void *, void *);\n", naming.DispatchTypedef)
	fmt.Fprintf(&sb, "extern int %s(void *, void *, void *);\n", naming.DispatchTrampoline)

	for _, s := range f.Services {
		sym := nc.Service(s.Name)
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "void *%s(void);\n", sym.ServiceNew())
		fmt.Fprintf(&sb, "void %s(void *service);\n", sym.ServiceDestroy())
		fmt.Fprintf(&sb, "void *%s(void *channel);\n", sym.StubWithChannel())
		fmt.Fprintf(&sb, "void %s(void *stub);\n", sym.StubDestroy())
		for _, m := range s.Methods {
			fmt.Fprintf(&sb, "void %s(void *service, void *context, %s dispatch);\n",
				sym.SetHandler(m.Name), naming.DispatchTypedef)
			fmt.Fprintf(&sb, "void %s(void *stub, void *cntl);\n", sym.StubCall(m.Name))
		}
	}
	return sb.String()
}

func goType(t schema.TypeRef) *j.Statement {
	if t.GoImportPath == "" {
		return j.Id(t.Name)
	}
	return j.Qual(t.GoImportPath, t.Name)
}

func unsafePointer() *j.Statement {
	return j.Qual("unsafe", "Pointer")
}

func (e *Emitter) bindService(jf *j.File, nc naming.Context, s schema.Service) {
	sym := nc.Service(s.Name)
	name := sym.GoService()
	recv := func() *j.Statement { return j.Id("s").Op("*").Id(name) }
	inner := func() *j.Statement { return j.Id("s").Dot("inner") }

	jf.Commentf("%s owns a native %s service. It must not be copied, Close releases it.", name, nc.Qualify(s.Name))
	jf.Type().Id(name).Struct(
		j.Id("_").Qual(e.sysPkg, "NoCopy"),
		j.Id("inner").Add(unsafePointer()),
		j.Id("contexts").Index().Add(unsafePointer()),
	)
	jf.Line()

	jf.Func().Id(sym.GoServiceCtor()).Params().Op("*").Id(name).Block(
		j.Return(j.Op("&").Id(name).Values(j.Dict{
			j.Id("inner"): j.Qual("C", sym.ServiceNew()).Call(),
		})),
	)
	jf.Line()

	jf.Func().Params(recv()).Id("ServicePtr").Params().Add(unsafePointer()).Block(
		j.Return(inner()),
	)
	jf.Line()

	jf.Comment("Release hands the native service over, Close will not destroy it.")
	jf.Func().Params(recv()).Id("Release").Params().Add(unsafePointer()).Block(
		j.Id("p").Op(":=").Add(inner()),
		inner().Op("=").Nil(),
		j.Return(j.Id("p")),
	)
	jf.Line()

	jf.Func().Params(recv()).Id("Close").Params().Block(
		j.If(inner().Op("!=").Nil()).Block(
			j.Qual("C", sym.ServiceDestroy()).Call(inner()),
			inner().Op("=").Nil(),
		),
		j.For(j.List(j.Id("_"), j.Id("ctx")).Op(":=").Range().Id("s").Dot("contexts")).Block(
			j.Qual(e.sysPkg, "FreeContext").Call(j.Id("ctx")),
		),
		j.Id("s").Dot("contexts").Op("=").Nil(),
	)
	jf.Line()

	for _, m := range s.Methods {
		jf.Func().Params(recv()).Id(sym.GoSetHandler(m.Name)).Params(
			j.Id("fn").Func().Params(j.Op("*").Add(goType(m.Input)), j.Op("*").Add(goType(m.Output))).Error(),
		).Block(
			j.Id("ctx").Op(":=").Qual(e.sysPkg, "NewContext").Call(j.Qual(e.bindingPkg, "Adapt").Call(j.Id("fn"))),
			j.Id("s").Dot("contexts").Op("=").Append(j.Id("s").Dot("contexts"), j.Id("ctx")),
			j.Qual("C", sym.SetHandler(m.Name)).Call(
				inner(),
				j.Id("ctx"),
				j.Qual("C", naming.DispatchTypedef).Call(j.Qual("C", naming.DispatchTrampoline)),
			),
		)
		jf.Line()
	}
}

func (e *Emitter) bindStub(jf *j.File, nc naming.Context, s schema.Service) {
	sym := nc.Service(s.Name)
	name := sym.GoStub()
	recv := func() *j.Statement { return j.Id("s").Op("*").Id(name) }
	inner := func() *j.Statement { return j.Id("s").Dot("inner") }

	jf.Commentf("%s calls %s over a brpcsys channel. It must not be copied.", name, nc.Qualify(s.Name))
	jf.Type().Id(name).Struct(
		j.Id("_").Qual(e.sysPkg, "NoCopy"),
		j.Id("inner").Add(unsafePointer()),
	)
	jf.Line()

	jf.Func().Id(sym.GoStubCtor()).Params(j.Id("ch").Op("*").Qual(e.sysPkg, "Channel")).Op("*").Id(name).Block(
		j.Return(j.Op("&").Id(name).Values(j.Dict{
			j.Id("inner"): j.Qual("C", sym.StubWithChannel()).Call(j.Id("ch").Dot("Ptr").Call()),
		})),
	)
	jf.Line()

	jf.Func().Params(recv()).Id("Close").Params().Block(
		j.If(inner().Op("!=").Nil()).Block(
			j.Qual("C", sym.StubDestroy()).Call(inner()),
			inner().Op("=").Nil(),
		),
	)
	jf.Line()

	for _, m := range s.Methods {
		jf.Func().Params(recv()).Id(m.Name).Params(
			j.Id("req").Op("*").Add(goType(m.Input)),
		).Params(j.Op("*").Add(goType(m.Output)), j.Error()).Block(
			j.Id("cntl").Op(":=").Qual(e.sysPkg, "NewController").Call(),
			j.Defer().Id("cntl").Dot("Close").Call(),
			j.Line(),
			j.Return(j.Qual(e.bindingPkg, "Invoke").Index(goType(m.Output)).Call(
				j.Id("cntl"),
				j.Id("req"),
				j.Func().Params().Block(
					j.Qual("C", sym.StubCall(m.Name)).Call(inner(), j.Id("cntl").Dot("Ptr").Call()),
				),
			)),
		)
		jf.Line()
	}
}
