// Package all is a meta-package that imports all store implementations.
//
// This is a HACK to make tests work consistently.
package all

import (
	_ "github.com/glyphgate/glyphgate/lib/store/bbolt"
	_ "github.com/glyphgate/glyphgate/lib/store/filesystem"
	_ "github.com/glyphgate/glyphgate/lib/store/memory"
	_ "github.com/glyphgate/glyphgate/lib/store/postgres"
	_ "github.com/glyphgate/glyphgate/lib/store/valkey"
)
