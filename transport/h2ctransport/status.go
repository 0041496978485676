package h2ctransport

import (
	"net/http"

	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"

	"github.com/ozontech/brpcgen/brpc"
)

// callStatus is the JSON body of a failed call.
type callStatus struct {
	Code brpc.ErrorCode
	Text string
}

func (s callStatus) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"code":`)
	w.Int32(int32(s.Code))
	w.RawString(`,"name":`)
	w.String(s.Code.String())
	w.RawString(`,"text":`)
	w.String(s.Text)
	w.RawByte('}')
}

func (s *callStatus) UnmarshalEasyJSON(in *jlexer.Lexer) {
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeString()
		in.WantColon()
		switch key {
		case "code":
			s.Code = brpc.FromCode(in.Int32())
		case "text":
			s.Text = in.String()
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	in.Consumed()
}

func (s callStatus) marshal() []byte {
	var w jwriter.Writer
	s.MarshalEasyJSON(&w)
	b, _ := w.BuildBytes()
	return b
}

func unmarshalStatus(data []byte) (callStatus, error) {
	var s callStatus
	in := jlexer.Lexer{Data: data}
	s.UnmarshalEasyJSON(&in)
	return s, in.Error()
}

func httpStatus(code brpc.ErrorCode) int {
	switch code {
	case brpc.ENOSERVICE, brpc.ENOMETHOD:
		return http.StatusNotFound
	case brpc.EREQUEST:
		return http.StatusBadRequest
	case brpc.ELIMIT:
		return http.StatusRequestEntityTooLarge
	case brpc.ERPCTIMEDOUT:
		return http.StatusGatewayTimeout
	case brpc.EOVERCROWDED, brpc.ELOGOFF:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// codeOf maps a failed response without a readable body.
func codeOf(status int) brpc.ErrorCode {
	switch status {
	case http.StatusNotFound:
		return brpc.ENOMETHOD
	case http.StatusBadRequest, http.StatusMethodNotAllowed:
		return brpc.EREQUEST
	case http.StatusRequestEntityTooLarge:
		return brpc.ELIMIT
	case http.StatusGatewayTimeout:
		return brpc.ERPCTIMEDOUT
	case http.StatusServiceUnavailable:
		return brpc.ELOGOFF
	default:
		return brpc.EHTTP
	}
}
