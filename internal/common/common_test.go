package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseRecorder(t *testing.T) {
	tests := []struct {
		name          string
		handler       func(w http.ResponseWriter)
		wantStatus    int
		wantWritten   int
		wantErrorBody string
	}{
		{
			name:       "nothing sent",
			handler:    func(w http.ResponseWriter) {},
			wantStatus: 0,
		},
		{
			name:        "implicit ok",
			handler:     func(w http.ResponseWriter) { _, _ = w.Write([]byte("fine")) },
			wantStatus:  http.StatusOK,
			wantWritten: 4,
		},
		{
			name: "error body",
			handler: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"status":`))
				_, _ = w.Write([]byte(`"Bad Request"}`))
			},
			wantStatus:    http.StatusBadRequest,
			wantWritten:   24,
			wantErrorBody: `{"status":"Bad Request"}`,
		},
		{
			name: "second header ignored",
			handler: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusAccepted)
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantStatus: http.StatusAccepted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			wrapped := WrapResponse(rec)
			tt.handler(wrapped)

			assert.Equal(t, tt.wantStatus, wrapped.Status())
			assert.Equal(t, tt.wantWritten, wrapped.Written())
			assert.Equal(t, tt.wantErrorBody, string(wrapped.ErrorBody()))
		})
	}
}
