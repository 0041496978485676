// Package brpc models the call-control side of the native RPC library:
// error codes, the controller carrying attachments and failure status,
// and the channel contract.
package brpc

import (
	"errors"
	"fmt"
	"strconv"
)

type ErrorCode int32

const (
	NOERROR ErrorCode = 0

	ENOSERVICE        ErrorCode = 1001 // Service not found
	ENOMETHOD         ErrorCode = 1002 // Method not found
	EREQUEST          ErrorCode = 1003 // Bad Request
	ERPCAUTH          ErrorCode = 1004 // Unauthorized
	ETOOMANYFAILS     ErrorCode = 1005 // Too many sub calls failed
	EPCHANFINISH      ErrorCode = 1006 // ParallelChannel finished
	EBACKUPREQUEST    ErrorCode = 1007 // Sending backup request
	ERPCTIMEDOUT      ErrorCode = 1008 // RPC call is timed out
	EFAILEDSOCKET     ErrorCode = 1009 // Broken socket
	EHTTP             ErrorCode = 1010 // Bad http call
	EOVERCROWDED      ErrorCode = 1011 // The server is overcrowded
	ERTMPPUBLISHABLE  ErrorCode = 1012 // RtmpRetryingClientStream is publishable
	ERTMPCREATESTREAM ErrorCode = 1013 // createStream was rejected by the RTMP server
	EEOF              ErrorCode = 1014 // Got EOF
	EUNUSED           ErrorCode = 1015 // The socket was not needed
	ESSL              ErrorCode = 1016 // SSL related error
	EH2RUNOUTSTREAMS  ErrorCode = 1017 // The H2 socket was run out of streams
	EREJECT           ErrorCode = 1018 // The Request is rejected

	// серверные ошибки
	EINTERNAL ErrorCode = 2001 // Internal Server Error
	ERESPONSE ErrorCode = 2002 // Bad Response
	ELOGOFF   ErrorCode = 2003 // Server is stopping
	ELIMIT    ErrorCode = 2004 // Reached server's limit on resources
	ECLOSE    ErrorCode = 2005 // Close socket initiatively
	EITP      ErrorCode = 2006 // Failed Itp response

	// ошибки биндинга
	ESERIALIZE   ErrorCode = 3001
	EDESERIALIZE ErrorCode = 3002
	EFFI         ErrorCode = 3003

	UNKNOWN ErrorCode = 0xffff
)

var codeNames = map[ErrorCode]string{
	NOERROR:           "NOERROR",
	ENOSERVICE:        "ENOSERVICE",
	ENOMETHOD:         "ENOMETHOD",
	EREQUEST:          "EREQUEST",
	ERPCAUTH:          "ERPCAUTH",
	ETOOMANYFAILS:     "ETOOMANYFAILS",
	EPCHANFINISH:      "EPCHANFINISH",
	EBACKUPREQUEST:    "EBACKUPREQUEST",
	ERPCTIMEDOUT:      "ERPCTIMEDOUT",
	EFAILEDSOCKET:     "EFAILEDSOCKET",
	EHTTP:             "EHTTP",
	EOVERCROWDED:      "EOVERCROWDED",
	ERTMPPUBLISHABLE:  "ERTMPPUBLISHABLE",
	ERTMPCREATESTREAM: "ERTMPCREATESTREAM",
	EEOF:              "EEOF",
	EUNUSED:           "EUNUSED",
	ESSL:              "ESSL",
	EH2RUNOUTSTREAMS:  "EH2RUNOUTSTREAMS",
	EREJECT:           "EREJECT",
	EINTERNAL:         "EINTERNAL",
	ERESPONSE:         "ERESPONSE",
	ELOGOFF:           "ELOGOFF",
	ELIMIT:            "ELIMIT",
	ECLOSE:            "ECLOSE",
	EITP:              "EITP",
	ESERIALIZE:        "ESERIALIZE",
	EDESERIALIZE:      "EDESERIALIZE",
	EFFI:              "EFFI",
	UNKNOWN:           "UNKNOWN",
}

// FromCode maps a raw code reported by the native library. Codes outside
// the table become UNKNOWN.
func FromCode(code int32) ErrorCode {
	if _, ok := codeNames[ErrorCode(code)]; ok {
		return ErrorCode(code)
	}
	return UNKNOWN
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "ErrorCode(" + strconv.Itoa(int(c)) + ")"
}

type Error struct {
	Code ErrorCode
	Text string
	err  error
}

var (
	ErrSerialize   = &Error{Code: ESERIALIZE}
	ErrDeserialize = &Error{Code: EDESERIALIZE}
)

func NewError(code ErrorCode, text string) *Error {
	return &Error{Code: code, Text: text}
}

// Wrap keeps err as the cause of a coded error.
func Wrap(code ErrorCode, err error) *Error {
	return &Error{Code: code, Text: err.Error(), err: err}
}

func (e *Error) Error() string {
	if e.Text == "" {
		return "brpc: " + e.Code.String()
	}
	return fmt.Sprintf("brpc: %s: %s", e.Code, e.Text)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches errors by code, so errors.Is(err, ErrSerialize) holds for any
// serialization failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Text == "" || t.Text == e.Text)
}

// CodeOf returns the code carried by err, NOERROR for nil and UNKNOWN for
// errors without a code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return NOERROR
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return UNKNOWN
}

// IsTransport reports whether err was raised by the call itself rather
// than by encoding or decoding its messages.
func IsTransport(err error) bool {
	switch CodeOf(err) {
	case NOERROR, ESERIALIZE, EDESERIALIZE:
		return false
	default:
		return true
	}
}
