package common

import (
	"net/http"
)

// ResponseRecorder wraps a ResponseWriter and remembers what was sent
// through it, for middlewares that log after the handler ran.
type ResponseRecorder struct {
	http.ResponseWriter
	status        int
	written       int
	errorBody     []byte
	headerWritten bool
}

func WrapResponse(response http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: response}
}

// Status is the status code sent, 200 if the handler wrote a body without
// calling WriteHeader, 0 if it sent nothing.
func (rw *ResponseRecorder) Status() int {
	return rw.status
}

func (rw *ResponseRecorder) Written() int {
	return rw.written
}

// ErrorBody is the body of a 4xx or 5xx response.
func (rw *ResponseRecorder) ErrorBody() []byte {
	return rw.errorBody
}

func (rw *ResponseRecorder) WriteHeader(statusCode int) {
	if rw.headerWritten {
		return
	}
	rw.status = statusCode
	rw.headerWritten = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *ResponseRecorder) Write(p []byte) (int, error) {
	if !rw.headerWritten {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.status >= http.StatusBadRequest {
		rw.errorBody = append(rw.errorBody, p...)
	}
	n, err := rw.ResponseWriter.Write(p)
	rw.written += n
	return n, err
}
