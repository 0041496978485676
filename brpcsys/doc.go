// Package brpcsys is the native side of the bridge: it drives brpc servers,
// channels and controllers through cgo and hosts the dispatch trampoline
// every generated binding registers with its shim.
//
// Everything except NoCopy is built only with the brpc build tag and a cgo
// toolchain that can link libbrpc:
//
//	go build -tags brpc ./...
package brpcsys
