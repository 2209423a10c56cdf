package lib

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/glyphgate/glyphgate"
)

// readCheckRequest extracts the verification parameters. A body that is not
// valid JSON yields empty parameters, which Verify reports as missing.
func readCheckRequest(w http.ResponseWriter, r *http.Request) (checkRequest, error) {
	var result checkRequest

	if r.Method != http.MethodPost {
		q := r.URL.Query()
		result.CaptchaID = q.Get("captchaId")
		result.CaptchaValue = q.Get("captchaValue")
		return result, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCheckBody)
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		return checkRequest{}, fmt.Errorf("lib: can't decode check request: %w", err)
	}

	return result, nil
}

// baseURL is the externally visible URL glyphgate is served under, without
// a trailing slash.
func (s *Server) baseURL(r *http.Request) string {
	if s.opts.PublicURL != "" {
		return strings.TrimSuffix(s.opts.PublicURL, "/") + strings.TrimSuffix(s.opts.BasePrefix, "/")
	}

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	return scheme + "://" + r.Host + strings.TrimSuffix(s.opts.BasePrefix, "/")
}

// captchaURI is the absolute locator of the image of challenge id.
func (s *Server) captchaURI(r *http.Request, id string) string {
	return s.baseURL(r) + glyphgate.CaptchaPath + id + "/" + id + glyphgate.ImageExtension
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
