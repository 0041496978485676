// protoc-gen-brpc renders the brpc bridge artifacts as a protoc plugin:
//
//	protoc --brpc_out=. --brpc_opt=binding=example.com/rt/binding,sys=example.com/rt/sys echo.proto
package main

import (
	"errors"
	"flag"

	"go.uber.org/zap"
	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/ozontech/brpcgen/emitter"
	"github.com/ozontech/brpcgen/schema"
)

func main() {
	var flags flag.FlagSet
	bindingPkg := flags.String("binding", "", "import path of the binding runtime package")
	sysPkg := flags.String("sys", "", "import path of the brpcsys runtime package")
	verbose := flags.Bool("verbose", false, "log rendered artifacts to stderr")

	protogen.Options{ParamFunc: flags.Set}.Run(func(gen *protogen.Plugin) error {
		// stdout занят ответом protoc, логи идут в stderr
		log := zap.NewNop()
		if *verbose {
			var err error
			if log, err = zap.NewDevelopment(); err != nil {
				return err
			}
		}
		defer log.Sync() //nolint:errcheck

		var opts []emitter.Option
		if *bindingPkg != "" || *sysPkg != "" {
			if *bindingPkg == "" || *sysPkg == "" {
				return errors.New("binding and sys must be set together")
			}
			opts = append(opts, emitter.WithRuntime(*bindingPkg, *sysPkg))
		}
		return generate(gen, emitter.New(log, opts...))
	})
}

func generate(gen *protogen.Plugin, em *emitter.Emitter) error {
	gen.SupportedFeatures = uint64(pluginpb.CodeGeneratorResponse_FEATURE_PROTO3_OPTIONAL)

	for _, f := range gen.Files {
		if !f.Generate {
			continue
		}
		arts, err := em.Generate(schema.FromProtoreflect(f.Desc))
		if err != nil {
			return err
		}
		for _, a := range arts {
			importPath := protogen.GoImportPath("")
			if a.Kind == emitter.Binding {
				importPath = f.GoImportPath
			}
			g := gen.NewGeneratedFile(a.Name, importPath)
			if _, err := g.Write(a.Content); err != nil {
				return err
			}
		}
	}
	return nil
}
