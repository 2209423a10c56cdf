package lib

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/glyphgate/glyphgate"
	"github.com/glyphgate/glyphgate/internal"
	"github.com/glyphgate/glyphgate/lib/challenge"
	"github.com/glyphgate/glyphgate/lib/config"
)

type Options struct {
	Challenges *challenge.Service

	// BasePrefix is the path every route is mounted under, e.g. /captcha.
	BasePrefix string

	// PublicURL is the externally visible base URL used for image locators.
	// When empty, locators are built from the Host of each request.
	PublicURL string

	// CORSOrigins lists the origins allowed to call the API. Empty allows
	// every origin.
	CORSOrigins []string
}

// LoadConfigOrDefault reads fname, or the built-in configuration when fname
// is empty.
func LoadConfigOrDefault(fname string) (*config.Config, error) {
	if fname == "" {
		return config.LoadDefault()
	}

	fin, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("can't parse config file %s: %w", fname, err)
	}

	defer func(fin io.ReadCloser) {
		err := fin.Close()
		if err != nil {
			slog.Error("failed to close config file", "file", fname, "err", err)
		}
	}(fin)

	return config.Load(fin, fname)
}

func New(opts Options) (*Server, error) {
	if opts.Challenges == nil {
		return nil, fmt.Errorf("lib: %w: no challenge service", challenge.ErrBadConfig)
	}

	if opts.BasePrefix != "" && (!strings.HasPrefix(opts.BasePrefix, "/") || strings.HasSuffix(opts.BasePrefix, "/")) {
		return nil, fmt.Errorf("lib: base prefix %q must start with a slash and not end with one", opts.BasePrefix)
	}

	glyphgate.BasePrefix = opts.BasePrefix

	result := &Server{
		challenges: opts.Challenges,
		opts:       opts,
	}

	mux := http.NewServeMux()

	registerWithPrefix := func(pattern string, handler http.Handler, method string) {
		if method != "" {
			method = method + " " // methods must end with a space to register with them
		}

		basePrefix := strings.TrimSuffix(opts.BasePrefix, "/")

		if !strings.HasPrefix(pattern, "/") {
			pattern = "/" + pattern
		}

		mux.Handle(method+basePrefix+pattern, handler)
	}

	api := func(name string, h http.HandlerFunc) http.Handler {
		return internal.GzipMiddleware(1, internal.NoStoreCache(countRequests(name, h)))
	}

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		registerWithPrefix("/getCaptcha", api("getCaptcha", result.GetCaptcha), method)
		registerWithPrefix("/checkCaptcha", api("checkCaptcha", result.CheckCaptcha), method)
	}

	registerWithPrefix(glyphgate.CaptchaPath+"{id}/{file}", internal.UnchangingCache(countRequests("image", result.ServeImage)), http.MethodGet)
	registerWithPrefix("/{$}", internal.GzipMiddleware(1, countRequests("index", result.RenderIndex)), http.MethodGet)

	result.mux = mux
	result.handler = internal.CORS(opts.CORSOrigins, mux)

	return result, nil
}
