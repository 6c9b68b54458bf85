// ABOUTME: Embeds HTML templates and markdown copy into the binary using go:embed
// ABOUTME: Provides templateFS and contentFS for loading pages at startup

package pages

import "embed"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed content/*.md
var contentFS embed.FS
