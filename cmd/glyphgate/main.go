package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/facebookgo/flagenv"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"sigs.k8s.io/yaml"

	"github.com/glyphgate/glyphgate"
	"github.com/glyphgate/glyphgate/internal"
	libglyphgate "github.com/glyphgate/glyphgate/lib"
	"github.com/glyphgate/glyphgate/lib/challenge"
	"github.com/glyphgate/glyphgate/lib/config"
	"github.com/glyphgate/glyphgate/lib/store"
	_ "github.com/glyphgate/glyphgate/lib/store/all"
)

var (
	basePrefix         = flag.String("base-prefix", "", "base prefix (root URL) the application is served under e.g. /captcha")
	bind               = flag.String("bind", ":8923", "network address to bind HTTP to")
	bindNetwork        = flag.String("bind-network", "tcp", "network family to bind HTTP to, e.g. unix, tcp")
	configFname        = flag.String("config-fname", "", "full path to a glyphgate config file (defaults to a sensible built-in config)")
	dumpConfig         = flag.Bool("dump-config", false, "print the effective configuration as YAML and exit")
	metricsBind        = flag.String("metrics-bind", ":9090", "network address to bind metrics to")
	metricsBindNetwork = flag.String("metrics-bind-network", "tcp", "network family for the metrics server to bind to")
	socketMode         = flag.String("socket-mode", "0770", "socket mode (permissions) for unix domain sockets.")
	slogLevel          = flag.String("slog-level", "INFO", "logging level (see https://pkg.go.dev/log/slog#hdr-Levels)")
	healthcheck        = flag.Bool("healthcheck", false, "run a health check against glyphgate")
	versionFlag        = flag.Bool("version", false, "print glyphgate version")

	// These override the matching config file values when set.
	storeBackend    = flag.String("store-backend", "", "challenge store backend, one of: "+strings.Join(store.Methods(), ", "))
	storeParameters = flag.String("store-parameters", "", `JSON parameters for the store backend, e.g. {"path": "/var/lib/glyphgate"}`)
	captchaLength   = flag.Int("length", glyphgate.DefaultLength, "number of symbols in each captcha")
	captchaAlphabet = flag.String("alphabet", "digits", "named alphabet ("+strings.Join(challenge.Alphabets(), ", ")+") or literal symbols to draw captcha text from")
	captchaNoise    = flag.Bool("noise", false, "draw arcs, lines and dots under the captcha text")
	fontPath        = flag.String("font-path", "", "TrueType font to render captchas with (defaults to the embedded Go Regular font)")
	publicURL       = flag.String("public-url", "", "externally visible base URL used in captchaURI, e.g. https://captcha.example.com")
	corsOrigins     = flag.String("cors-origins", "", "comma separated list of origins allowed to call the API, empty allows all")
)

func doHealthCheck() error {
	resp, err := http.Get("http://localhost" + *metricsBind + glyphgate.BasePrefix + "/metrics")
	if err != nil {
		return fmt.Errorf("failed to fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// parseBindNetFromAddr determine bind network and address based on the given network and address.
func parseBindNetFromAddr(address string) (string, string) {
	defaultScheme := "http://"
	if !strings.Contains(address, "://") {
		if strings.HasPrefix(address, ":") {
			address = defaultScheme + "localhost" + address
		} else {
			address = defaultScheme + address
		}
	}

	bindUri, err := url.Parse(address)
	if err != nil {
		log.Fatal(fmt.Errorf("failed to parse bind URL: %w", err))
	}

	switch bindUri.Scheme {
	case "unix":
		return "unix", bindUri.Path
	case "tcp", "http", "https":
		return "tcp", bindUri.Host
	default:
		log.Fatal(fmt.Errorf("unsupported network scheme %s in address %s", bindUri.Scheme, address))
	}
	return "", address
}

func setupListener(network string, address string) (net.Listener, string) {
	formattedAddress := ""

	if network == "" {
		network, address = parseBindNetFromAddr(address)
	}

	switch network {
	case "unix":
		formattedAddress = "unix:" + address
	case "tcp":
		if strings.HasPrefix(address, ":") { // assume it's just a port e.g. :8923
			formattedAddress = "http://localhost" + address
		} else {
			formattedAddress = "http://" + address
		}
	default:
		formattedAddress = fmt.Sprintf(`(%s) %s`, network, address)
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		log.Fatal(fmt.Errorf("failed to bind to %s: %w", formattedAddress, err))
	}

	if network == "unix" {
		mode, err := strconv.ParseUint(*socketMode, 8, 0)
		if err != nil {
			listener.Close()
			log.Fatal(fmt.Errorf("could not parse socket mode %s: %w", *socketMode, err))
		}

		err = os.Chmod(address, os.FileMode(mode))
		if err != nil {
			err := listener.Close()
			if err != nil {
				log.Printf("failed to close listener: %v", err)
			}
			log.Fatal(fmt.Errorf("could not change socket mode: %w", err))
		}
	}

	return listener, formattedAddress
}

// applyFlags copies explicitly set flags (or their environment variables)
// over the values loaded from the config file.
func applyFlags(c *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "store-backend":
			c.Store.Backend = *storeBackend
		case "store-parameters":
			c.Store.Parameters = json.RawMessage(*storeParameters)
		case "length":
			c.Captcha.Length = *captchaLength
		case "alphabet":
			c.Captcha.Alphabet = *captchaAlphabet
		case "noise":
			c.Captcha.Noise = *captchaNoise
		case "font-path":
			c.Captcha.Render.FontPath = *fontPath
		case "public-url":
			c.Server.PublicURL = *publicURL
		case "cors-origins":
			c.Server.CORSOrigins = nil
			for _, origin := range strings.Split(*corsOrigins, ",") {
				if origin = strings.TrimSpace(origin); origin != "" {
					c.Server.CORSOrigins = append(c.Server.CORSOrigins, origin)
				}
			}
		}
	})
}

func main() {
	flagenv.Parse()
	flag.Parse()

	if *versionFlag {
		fmt.Println("glyphgate", glyphgate.Version)
		return
	}

	internal.InitSlog(*slogLevel)

	if *healthcheck {
		if err := doHealthCheck(); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := libglyphgate.LoadConfigOrDefault(*configFname)
	if err != nil {
		log.Fatalf("can't load config: %v", err)
	}

	applyFlags(cfg)

	if err := cfg.Valid(); err != nil {
		log.Fatalf("[misconfiguration] %v", err)
	}

	if *dumpConfig {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			log.Fatalf("can't encode config: %v", err)
		}
		os.Stdout.Write(data)
		return
	}

	if *basePrefix != "" && !strings.HasPrefix(*basePrefix, "/") {
		log.Fatalf("[misconfiguration] base-prefix must start with a slash, eg: /%s", *basePrefix)
	} else if strings.HasSuffix(*basePrefix, "/") {
		log.Fatalf("[misconfiguration] base-prefix must not end with a slash")
	}

	wg := new(sync.WaitGroup)
	// install signal handler
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store.Backend, cfg.Store.Parameters)
	if err != nil {
		log.Fatalf("can't open %s store: %v", cfg.Store.Backend, err)
	}

	text, err := cfg.Captcha.TextGenerator()
	if err != nil {
		log.Fatalf("[misconfiguration] %v", err)
	}

	renderer, err := cfg.Captcha.Renderer()
	if err != nil {
		log.Fatalf("[misconfiguration] %v", err)
	}

	svc, err := challenge.New(challenge.Options{
		Store:    st,
		Text:     text,
		Renderer: renderer,
		Noise:    cfg.Captcha.Noise,
	})
	if err != nil {
		log.Fatalf("can't construct challenge service: %v", err)
	}

	s, err := libglyphgate.New(libglyphgate.Options{
		Challenges:  svc,
		BasePrefix:  *basePrefix,
		PublicURL:   cfg.Server.PublicURL,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		log.Fatalf("can't construct libglyphgate.Server: %v", err)
	}

	if *metricsBind != "" {
		wg.Add(1)
		go metricsServer(ctx, wg.Done)
	}

	var h http.Handler
	h = s
	h = internal.XRealIP(h)

	srv := http.Server{Handler: h, ErrorLog: internal.GetFilteredHTTPLogger()}
	listener, listenerUrl := setupListener(*bindNetwork, *bind)
	slog.Info(
		"listening",
		"url", listenerUrl,
		"version", glyphgate.Version,
		"store", cfg.Store.Backend,
		"length", text.Length(),
		"alphabet", text.Alphabet(),
		"noise", cfg.Captcha.Noise,
		"public-url", cfg.Server.PublicURL,
		"base-prefix", *basePrefix,
	)

	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), glyphgate.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(c); err != nil {
			log.Printf("cannot shut down: %v", err)
		}
	}()

	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	wg.Wait()

	if closer, ok := st.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Error("can't close store", "err", err)
		}
	}
}

func metricsServer(ctx context.Context, done func()) {
	defer done()

	mux := http.NewServeMux()
	mux.Handle(glyphgate.BasePrefix+"/metrics", promhttp.Handler())

	srv := http.Server{Handler: mux, ErrorLog: internal.GetFilteredHTTPLogger()}
	listener, metricsUrl := setupListener(*metricsBindNetwork, *metricsBind)
	slog.Debug("listening for metrics", "url", metricsUrl)

	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), glyphgate.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(c); err != nil {
			log.Printf("cannot shut down: %v", err)
		}
	}()

	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
