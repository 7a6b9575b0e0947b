package htmldoc

// NavigationExclusionMode selects how much page chrome is pruned before
// rendering. Each mode includes the ones before it.
type NavigationExclusionMode int

const (
	// NavigationExclusionNone keeps everything but scripts and styles.
	NavigationExclusionNone NavigationExclusionMode = iota

	// NavigationExclusionExplicit drops nav and aside elements and the
	// navigation and complementary landmarks. Page-level headers and
	// footers, and the banner and contentinfo landmarks, go too.
	NavigationExclusionExplicit

	// NavigationExclusionStandard also drops containers whose class or id
	// names page chrome, such as "navbar", "breadcrumb" or "site-footer".
	NavigationExclusionStandard

	// NavigationExclusionAggressive also drops block containers that are
	// mostly links. Link lists inside articles can be lost.
	NavigationExclusionAggressive
)

var navigationModeNames = [...]string{"none", "explicit", "standard", "aggressive"}

// String returns the configuration name of m.
func (m NavigationExclusionMode) String() string {
	if m < 0 || int(m) >= len(navigationModeNames) {
		return "unknown"
	}
	return navigationModeNames[m]
}

// ParseNavigationMode maps a configuration name to its mode. Unknown names
// yield NavigationExclusionStandard and false.
func ParseNavigationMode(s string) (NavigationExclusionMode, bool) {
	for i, name := range navigationModeNames {
		if name == s {
			return NavigationExclusionMode(i), true
		}
	}
	return NavigationExclusionStandard, false
}
