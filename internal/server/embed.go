// ABOUTME: Embeds the dev UI HTML template into the binary using go:embed
// ABOUTME: Provides templateFS for loading templates at runtime

package server

import "embed"

//go:embed templates/*.html
var templateFS embed.FS
