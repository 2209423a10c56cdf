package internal

import (
	"bytes"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestErrorLogFilter(t *testing.T) {
	var buf bytes.Buffer
	destLogger := log.New(&buf, "", 0)
	errorFilterWriter := &ErrorLogFilter{Unwrap: destLogger}
	testErrorLogger := log.New(errorFilterWriter, "", 0)

	for _, tt := range []struct {
		name     string
		message  string
		suppress bool
	}{
		{
			name:     "suppressed",
			message:  "http: proxy error: context canceled",
			suppress: true,
		},
		{
			name:    "allowed",
			message: "http: TLS handshake error from 127.0.0.1:1234: EOF",
		},
		{
			name:     "partial match",
			message:  "Some other log before http: proxy error: context canceled and after",
			suppress: true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			testErrorLogger.Println(tt.message)

			if tt.suppress {
				if buf.Len() != 0 {
					t.Errorf("suppressed message was written to output: %q", buf.String())
				}
				return
			}

			output := buf.String()
			if !strings.Contains(output, tt.message) {
				t.Errorf("allowed message was not written to output: %q", output)
			}
			if !strings.HasSuffix(output, "\n") {
				t.Errorf("allowed message output is missing newline: %q", output)
			}
		})
	}
}

func TestGetRequestLogger(t *testing.T) {
	InitSlog("debug")

	req := httptest.NewRequest("GET", "/checkCaptcha?captchaId=x", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.1")

	if lg := GetRequestLogger(req); lg == nil {
		t.Fatal("wanted a logger")
	}
}
