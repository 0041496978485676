package brpc

import (
	"context"
	"strings"
)

// Channel performs calls. Failures are reported through the controller,
// the caller inspects it after CallMethod returns.
type Channel interface {
	CallMethod(ctx context.Context, method MethodRef, cntl *Controller)
}

type MethodRef struct {
	Service string // fully qualified service name
	Method  string
}

// Path returns the method in the '/package.Service/Method' form.
func (m MethodRef) Path() string {
	return "/" + m.Service + "/" + m.Method
}

func (m MethodRef) String() string {
	return m.Service + "." + m.Method
}

// ParseMethodRef accepts '/package.Service/Method' and
// 'package.Service.Method'.
func ParseMethodRef(s string) (MethodRef, bool) {
	var i int
	if strings.HasPrefix(s, "/") {
		s = s[1:]
		i = strings.LastIndexByte(s, '/')
	} else {
		i = strings.LastIndexByte(s, '.')
	}
	if i <= 0 || i == len(s)-1 {
		return MethodRef{}, false
	}
	return MethodRef{Service: s[:i], Method: s[i+1:]}, true
}
