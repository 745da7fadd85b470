// Package assets holds the static card template and the fallback profile
// picture.
package assets

import _ "embed"

//go:embed basecard-base.svg
var CardTemplate []byte

//go:embed default-profile.svg
var DefaultProfileImage []byte

const DefaultProfileImageMimeType = "image/svg+xml"
