// Package appfs exposes files embedded into the app binaries.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
