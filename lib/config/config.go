package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/glyphgate/glyphgate"
	"github.com/glyphgate/glyphgate/data"
	"github.com/glyphgate/glyphgate/lib/challenge"
	"k8s.io/apimachinery/pkg/util/yaml"
)

var (
	ErrBadPublicURL  = errors.New("config.Server: public URL must be an absolute http(s) URL")
	ErrBadCORSOrigin = errors.New("config.Server: CORS origin must be * or an absolute http(s) URL")
)

// Captcha configures what challenges look like.
type Captcha struct {
	Length int `json:"length"`

	// Alphabet is either the name of a registered alphabet such as "digits"
	// or the literal set of symbols to draw from.
	Alphabet string `json:"alphabet"`

	Noise  bool                    `json:"noise"`
	Render challenge.RenderOptions `json:"render"`
}

func (c Captcha) Valid() error {
	var errs []error

	if _, err := c.TextGenerator(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.Renderer(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) != 0 {
		return fmt.Errorf("config.Captcha: %w", errors.Join(errs...))
	}

	return nil
}

// TextGenerator builds the generator described by c.
func (c Captcha) TextGenerator() (*challenge.TextGenerator, error) {
	return challenge.NewTextGenerator(c.Length, challenge.ResolveAlphabet(c.Alphabet))
}

// Renderer builds the renderer described by c, loading its font.
func (c Captcha) Renderer() (*challenge.Renderer, error) {
	return challenge.NewRenderer(c.Render)
}

type Server struct {
	// PublicURL is the externally visible base URL used to build image
	// locators. When empty, locators are derived from each request.
	PublicURL string `json:"publicURL,omitempty"`

	// CORSOrigins lists the origins allowed to call the API. Empty allows
	// every origin.
	CORSOrigins []string `json:"corsOrigins,omitempty"`
}

func (s Server) Valid() error {
	var errs []error

	if s.PublicURL != "" && !absoluteHTTPURL(s.PublicURL) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrBadPublicURL, s.PublicURL))
	}

	for _, origin := range s.CORSOrigins {
		if origin != "*" && !absoluteHTTPURL(origin) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrBadCORSOrigin, origin))
		}
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}

func absoluteHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type Config struct {
	Store   Store   `json:"store"`
	Captcha Captcha `json:"captcha"`
	Server  Server  `json:"server"`
}

func (c *Config) Valid() error {
	var errs []error

	if err := c.Store.Valid(); err != nil {
		errs = append(errs, err)
	}

	if err := c.Captcha.Valid(); err != nil {
		errs = append(errs, err)
	}

	if err := c.Server.Valid(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) != 0 {
		return fmt.Errorf("config is not valid:\n%w", errors.Join(errs...))
	}

	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: Store{
			Backend: "memory",
		},
		Captcha: Captcha{
			Length:   glyphgate.DefaultLength,
			Alphabet: "digits",
			Render:   challenge.DefaultRenderOptions(),
		},
	}
}

// Load reads a YAML or JSON document on top of the built-in defaults, so a
// file only needs to mention what it changes.
func Load(fin io.Reader, fname string) (*Config, error) {
	c := Default()

	// An empty document decodes to io.EOF and leaves the defaults alone.
	if err := yaml.NewYAMLToJSONDecoder(fin).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("can't parse config YAML %s: %w", fname, err)
	}

	if err := c.Valid(); err != nil {
		return nil, fmt.Errorf("errors validating config %s: %w", fname, err)
	}

	return c, nil
}

// LoadDefault parses the annotated example configuration shipped in the
// data package. It yields the same values as Default.
func LoadDefault() (*Config, error) {
	fin, err := data.Config.Open(data.ConfigName)
	if err != nil {
		return nil, fmt.Errorf("[unexpected] can't open builtin config: %w", err)
	}
	defer fin.Close()

	return Load(fin, "(data)/"+data.ConfigName)
}
