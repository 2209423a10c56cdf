package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/glyphgate/glyphgate/lib/challenge"
	"github.com/glyphgate/glyphgate/lib/config"
)

func TestLoadDefault(t *testing.T) {
	got, err := config.LoadDefault()
	if err != nil {
		t.Fatal(err)
	}

	want := config.Default()

	if got.Store.Backend != want.Store.Backend {
		t.Errorf("backend: want %q, got %q", want.Store.Backend, got.Store.Backend)
	}

	if got.Captcha.Length != want.Captcha.Length || got.Captcha.Alphabet != want.Captcha.Alphabet || got.Captcha.Noise != want.Captcha.Noise {
		t.Errorf("captcha: want %+v, got %+v", want.Captcha, got.Captcha)
	}

	if got.Captcha.Render != want.Captcha.Render {
		t.Errorf("render: want %+v, got %+v", want.Captcha.Render, got.Captcha.Render)
	}
}

func TestLoad(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input string
		err   error
		check func(t *testing.T, c *config.Config)
	}{
		{
			name:  "comment-only document keeps defaults",
			input: "# nothing to change\n",
			check: func(t *testing.T, c *config.Config) {
				if c.Store.Backend != "memory" {
					t.Errorf("wanted memory backend, got %q", c.Store.Backend)
				}
			},
		},
		{
			name:  "empty document keeps defaults",
			input: "",
			check: func(t *testing.T, c *config.Config) {
				if c.Captcha.Length != 4 {
					t.Errorf("wanted length 4, got %d", c.Captcha.Length)
				}
				if c.Captcha.Render.Width != 200 {
					t.Errorf("wanted width 200, got %d", c.Captcha.Render.Width)
				}
			},
		},
		{
			name: "partial override",
			input: `captcha:
  length: 6
  alphabet: letters
  noise: true
  render:
    fontSize: 32
`,
			check: func(t *testing.T, c *config.Config) {
				if c.Captcha.Length != 6 || !c.Captcha.Noise {
					t.Errorf("override not applied: %+v", c.Captcha)
				}
				if c.Captcha.Render.FontSize != 32 {
					t.Errorf("wanted font size 32, got %v", c.Captcha.Render.FontSize)
				}
				if c.Captcha.Render.AnchorX != 45 {
					t.Errorf("unrelated render option lost its default: %+v", c.Captcha.Render)
				}
				g, err := c.Captcha.TextGenerator()
				if err != nil {
					t.Fatal(err)
				}
				if g.Alphabet() != challenge.Letters {
					t.Errorf("wanted the letters alphabet, got %q", g.Alphabet())
				}
			},
		},
		{
			name: "filesystem store",
			input: `store:
  backend: filesystem
  parameters:
    path: /var/lib/glyphgate
`,
			check: func(t *testing.T, c *config.Config) {
				if c.Store.Backend != "filesystem" {
					t.Errorf("wanted filesystem backend, got %q", c.Store.Backend)
				}
				if !strings.Contains(string(c.Store.Parameters), "/var/lib/glyphgate") {
					t.Errorf("parameters not carried over: %s", c.Store.Parameters)
				}
			},
		},
		{
			name:  "json works too",
			input: `{"captcha": {"alphabet": "ABCDEF"}}`,
			check: func(t *testing.T, c *config.Config) {
				if c.Captcha.Alphabet != "ABCDEF" {
					t.Errorf("wanted literal alphabet, got %q", c.Captcha.Alphabet)
				}
			},
		},
		{
			name:  "zero length",
			input: "captcha:\n  length: 0\n",
			err:   challenge.ErrBadLength,
		},
		{
			name:  "duplicate symbols",
			input: "captcha:\n  alphabet: AABB\n",
			err:   challenge.ErrDuplicateSymbol,
		},
		{
			name:  "bad density",
			input: "captcha:\n  render:\n    noiseDensity: 2\n",
			err:   challenge.ErrBadDensity,
		},
		{
			name:  "unknown store",
			input: "store:\n  backend: floppy\n",
			err:   config.ErrUnknownStoreBackend,
		},
		{
			name:  "relative public url",
			input: "server:\n  publicURL: /captchas\n",
			err:   config.ErrBadPublicURL,
		},
		{
			name:  "bad cors origin",
			input: "server:\n  corsOrigins:\n    - example.com\n",
			err:   config.ErrBadCORSOrigin,
		},
		{
			name: "good server block",
			input: `server:
  publicURL: https://captcha.example.com
  corsOrigins:
    - "*"
    - https://app.example.com
`,
			check: func(t *testing.T, c *config.Config) {
				if len(c.Server.CORSOrigins) != 2 {
					t.Errorf("wanted two origins, got %v", c.Server.CORSOrigins)
				}
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, err := config.Load(strings.NewReader(tt.input), tt.name)
			if !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Fatal("wrong error")
			}

			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestLoadGarbage(t *testing.T) {
	if _, err := config.Load(strings.NewReader("captcha: [1, 2"), "garbage"); err == nil {
		t.Error("wanted an error for malformed YAML")
	}
}
