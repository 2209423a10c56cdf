package data

import "embed"

// ConfigName is the file name of the built-in configuration.
const ConfigName = "glyphgate.yaml"

var (
	//go:embed glyphgate.yaml
	Config embed.FS
)
