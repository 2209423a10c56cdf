package lib

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/glyphgate/glyphgate"
	"github.com/glyphgate/glyphgate/internal"
	"github.com/glyphgate/glyphgate/lib/challenge"
	"github.com/glyphgate/glyphgate/lib/localization"
	"github.com/glyphgate/glyphgate/lib/store"
	"github.com/glyphgate/glyphgate/web"
)

// maxCheckBody caps the JSON body accepted by CheckCaptcha.
const maxCheckBody = 64 << 10

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glyphgate_api_requests",
		Help: "The total number of API requests by endpoint",
	}, []string{"endpoint"})

	imagesServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glyphgate_images_served",
		Help: "The total number of captcha image requests by outcome",
	}, []string{"outcome"})
)

type Server struct {
	mux        *http.ServeMux
	handler    http.Handler
	challenges *challenge.Service
	opts       Options
}

func countRequests(endpoint string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiRequests.WithLabelValues(endpoint).Inc()
		next(w, r)
	})
}

// GetCaptcha issues a new challenge and tells the client where its image
// lives. The solution never leaves the server.
func (s *Server) GetCaptcha(w http.ResponseWriter, r *http.Request) {
	lg := internal.GetRequestLogger(r)

	chall, err := s.challenges.Create(r.Context())
	if err != nil {
		var cerr *challenge.CreationError
		if errors.As(err, &cerr) {
			lg = lg.With("reason", cerr.Reason)
		}
		lg.Error("can't create challenge", "err", err)

		s.writeJSON(w, r, http.StatusInternalServerError, envelope{Response: "Something went wrong!"})
		return
	}

	lg.Debug("issued challenge", "id", chall.ID)

	s.writeJSON(w, r, http.StatusOK, envelope{Response: issuedChallenge{
		CaptchaID:  chall.ID,
		CaptchaURI: s.captchaURI(r, chall.ID),
	}})
}

// CheckCaptcha reads captchaId and captchaValue from a JSON body (POST) or
// the query string (GET) and reports the verdict.
func (s *Server) CheckCaptcha(w http.ResponseWriter, r *http.Request) {
	lg := internal.GetRequestLogger(r)
	localizer := localization.GetLocalizer(r)

	req, err := readCheckRequest(w, r)
	if err != nil {
		lg.Debug("can't read check request", "err", err)
	}

	verdict, err := s.challenges.Verify(r.Context(), req.CaptchaID, req.CaptchaValue)
	if err != nil {
		lg.Error("can't verify challenge", "id", req.CaptchaID, "err", err)
		s.writeJSON(w, r, http.StatusInternalServerError, envelope{Response: checkResult{
			Status:  "unhandled-situation",
			Message: localizer.T("unhandled_situation"),
		}})
		return
	}

	lg.Debug("checked challenge", "id", req.CaptchaID, "verdict", verdict.String())

	if !verdict.Checked() {
		s.writeJSON(w, r, http.StatusNotFound, envelope{Response: checkResult{
			Status:  verdict.String(),
			Message: localizer.T(verdict.String()),
		}})
		return
	}

	s.writeJSON(w, r, http.StatusOK, envelope{Response: checkResult{
		Status:         "ok",
		CaptchaVerdict: verdict.String(),
		Message:        localizer.T(verdict.String()),
	}})
}

// ServeImage returns the PNG of a challenge at
// /captchas/<id>/<id>.png.
func (s *Server) ServeImage(w http.ResponseWriter, r *http.Request) {
	lg := internal.GetRequestLogger(r)

	id := r.PathValue("id")
	if r.PathValue("file") != id+glyphgate.ImageExtension {
		imagesServed.WithLabelValues("not_found").Inc()
		http.NotFound(w, r)
		return
	}

	img, err := s.challenges.Image(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrIncomplete):
		imagesServed.WithLabelValues("not_found").Inc()
		http.NotFound(w, r)
		return
	case err != nil:
		lg.Error("can't read challenge image", "id", id, "err", err)
		imagesServed.WithLabelValues("error").Inc()
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	etag := `"` + internal.FastHash(img) + `"`
	w.Header().Set("ETag", etag)

	if r.Header.Get("If-None-Match") == etag {
		imagesServed.WithLabelValues("not_modified").Inc()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	imagesServed.WithLabelValues("ok").Inc()
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img); err != nil {
		lg.Debug("can't write image", "err", err)
	}
}

// RenderIndex shows the landing page describing the API.
func (s *Server) RenderIndex(w http.ResponseWriter, r *http.Request) {
	localizer := localization.GetLocalizer(r)

	templ.Handler(web.Index(s.baseURL(r), localizer)).ServeHTTP(w, r)
}

type envelope struct {
	Response any `json:"response"`
}

type issuedChallenge struct {
	CaptchaID  string `json:"captchaId"`
	CaptchaURI string `json:"captchaURI"`
}

type checkResult struct {
	Status         string `json:"status"`
	CaptchaVerdict string `json:"captchaVerdict,omitempty"`
	Message        string `json:"message,omitempty"`
}

type checkRequest struct {
	CaptchaID    string `json:"captchaId"`
	CaptchaValue string `json:"captchaValue"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		internal.GetRequestLogger(r).Error("failed to encode response", "err", err)
	}
}
