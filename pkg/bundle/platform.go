package bundle

import "strings"

// Platform is one of the fixed export targets.
type Platform string

const (
	Android Platform = "android"
	IOS     Platform = "ios"
	Web     Platform = "web"
)

// Platforms lists every supported platform in canonical order.
// Anything keyed by platform is iterated in this order.
var Platforms = []Platform{Android, IOS, Web}

// PlatformAll selects every exported platform.
const PlatformAll = "all"

// ParsePlatform maps a user-supplied name onto a known platform.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms {
		if p == known {
			return p, true
		}
	}
	return "", false
}

func (p Platform) String() string {
	return string(p)
}
