// Package glyphgate contains the version number and the shared constants of
// the captcha service.
package glyphgate

import "time"

// Version is the current version of glyphgate.
//
// This variable is set at build time using the -X linker flag. If not set,
// it defaults to "devel".
var Version = "devel"

// BasePrefix is a global prefix for all glyphgate endpoints. Can be emptied
// to remove the prefix entirely.
var BasePrefix = ""

const (
	// CaptchaPath is the path prefix rendered captcha images are served under.
	CaptchaPath = "/captchas/"

	// ImageExtension is the file extension of rendered captcha images.
	ImageExtension = ".png"

	// AnswerExtension is the file extension of recorded captcha solutions.
	AnswerExtension = ".ans"

	// DefaultLength is the default number of symbols in a captcha solution.
	DefaultLength = 4

	// DefaultWidth and DefaultHeight are the default canvas size in pixels.
	DefaultWidth  = 200
	DefaultHeight = 200

	// DefaultFontSize is the default font size in points.
	DefaultFontSize = 40

	// DefaultNoiseDensity is the fraction of the canvas covered by dot noise.
	DefaultNoiseDensity = 0.2

	// IDTimeLayout is the time layout embedded at the start of every
	// challenge ID.
	IDTimeLayout = "20060102-1504"

	// ShutdownTimeout is how long the HTTP servers get to drain on exit.
	ShutdownTimeout = 5 * time.Second
)
