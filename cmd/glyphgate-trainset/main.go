// Command glyphgate-trainset renders one small image per alphabet symbol
// and font, laid out as <out>/<symbol>/<fontIndex>-<n>-image.png, for
// training OCR models against glyphgate captchas.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/facebookgo/flagenv"
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"github.com/glyphgate/glyphgate"
	"github.com/glyphgate/glyphgate/internal"
	"github.com/glyphgate/glyphgate/lib/challenge"
)

var (
	outDir    = flag.String("out", "train", "folder to write the training set to")
	alphabet  = flag.String("alphabet", "digits", "named alphabet ("+strings.Join(challenge.Alphabets(), ", ")+") or literal symbols to render")
	fonts     = flag.String("fonts", "", "comma separated TrueType font paths, empty uses the embedded Go Regular font")
	fontSize  = flag.Float64("font-size", glyphgate.DefaultFontSize, "font size in points")
	samples   = flag.Int("samples", 500, "images per symbol and font")
	size      = flag.Int("size", 30, "width and height of each image in pixels")
	workers   = flag.Int("workers", runtime.GOMAXPROCS(0), "number of images rendered in parallel")
	slogLevel = flag.String("slog-level", "INFO", "logging level (see https://pkg.go.dev/log/slog#hdr-Levels)")
)

type job struct {
	Out       string
	Symbols   string
	Renderers []*challenge.Renderer
	Samples   int
	Size      int
	Workers   int
}

func main() {
	flagenv.Parse()
	flag.Parse()

	internal.InitSlog(*slogLevel)

	symbols := challenge.ResolveAlphabet(*alphabet)
	if _, err := challenge.NewTextGenerator(1, symbols); err != nil {
		log.Fatalf("[misconfiguration] %v", err)
	}

	fontPaths := []string{""}
	if *fonts != "" {
		fontPaths = strings.Split(*fonts, ",")
	}

	var renderers []*challenge.Renderer
	for _, path := range fontPaths {
		opts := challenge.DefaultRenderOptions()
		opts.FontPath = strings.TrimSpace(path)
		opts.FontSize = *fontSize

		r, err := challenge.NewRenderer(opts)
		if err != nil {
			log.Fatalf("can't load font %q: %v", path, err)
		}
		renderers = append(renderers, r)
	}

	n, err := generate(context.Background(), job{
		Out:       *outDir,
		Symbols:   symbols,
		Renderers: renderers,
		Samples:   *samples,
		Size:      *size,
		Workers:   *workers,
	})
	if err != nil {
		log.Fatal(err)
	}

	slog.Info("wrote training set", "path", *outDir, "images", n)
}

// generate writes the training set described by j and returns the number of
// images written.
func generate(ctx context.Context, j job) (int, error) {
	if j.Samples < 1 {
		return 0, fmt.Errorf("samples must be at least 1, got %d", j.Samples)
	}

	for _, symbol := range j.Symbols {
		if !safeDirName(string(symbol)) {
			return 0, fmt.Errorf("symbol %q can't be used as a folder name", symbol)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(j.Workers, 1))

	count := 0
	for _, symbol := range j.Symbols {
		dir := filepath.Join(j.Out, string(symbol))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("can't create %s: %w", dir, err)
		}

		for fontIndex, r := range j.Renderers {
			// Renders are deterministic, so one image serves every sample.
			img, err := r.RenderGlyph(string(symbol), j.Size)
			if err != nil {
				return 0, fmt.Errorf("can't render %q: %w", symbol, err)
			}

			for n := range j.Samples {
				path := filepath.Join(dir, fmt.Sprintf("%d-%d-image.png", fontIndex, n))
				count++

				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					return os.WriteFile(path, img, 0o644)
				})
			}
		}
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	return count, nil
}

// safeDirName reports whether name is a single path element inside the
// output folder.
func safeDirName(name string) bool {
	return name != "." && filepath.IsLocal(name) && !strings.ContainsAny(name, `/\`)
}
