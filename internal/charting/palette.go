package charting

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"excelviz/domain/core"
)

// DefaultColor is used when neither an explicit pick nor a theme supplies one
const DefaultColor = "#4bc0c0"

// Theme is a named color-generation strategy
type Theme string

const (
	ThemeDefault Theme = "default"
	ThemePastel  Theme = "pastel"
	ThemeNeon    Theme = "neon"
	ThemeDark    Theme = "dark"
)

var themeColors = map[Theme][]string{
	ThemePastel: {"#AEC6CF", "#FFB347", "#77DD77", "#FF6961", "#CB99C9", "#FFD700"},
	ThemeNeon:   {"#FF6EC7", "#39FF14", "#FF3131", "#00FFFF", "#FF00FF", "#FFFF00"},
	ThemeDark:   {"#444", "#666", "#888", "#AAA", "#BBB", "#CCC"},
}

// ParseTheme resolves a theme name; empty means the default theme
func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if t == "" || t == ThemeDefault {
		return ThemeDefault, nil
	}
	if _, ok := themeColors[t]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrInvalidTheme, s)
}

// Palette draws theme colors. Draws are random on every call, so a color is only
// stable within the render that drew it.
type Palette struct {
	theme Theme
	rng   *rand.Rand
}

// NewPalette creates a palette; a nil rng is seeded from the clock
func NewPalette(theme Theme, rng *rand.Rand) *Palette {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if _, err := ParseTheme(string(theme)); err != nil {
		theme = ThemeDefault
	}
	return &Palette{theme: theme, rng: rng}
}

// Theme returns the active theme
func (p *Palette) Theme() Theme {
	return p.theme
}

// SetTheme switches the active theme
func (p *Palette) SetTheme(theme Theme) error {
	t, err := ParseTheme(string(theme))
	if err != nil {
		return err
	}
	p.theme = t
	return nil
}

// Next draws one theme color
func (p *Palette) Next() string {
	choices, ok := themeColors[p.theme]
	if !ok {
		return fmt.Sprintf("#%06x", p.rng.Intn(0x1000000))
	}
	return choices[p.rng.Intn(len(choices))]
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// ValidColor reports whether s is a #rgb, #rrggbb or #rrggbbaa color
func ValidColor(s string) bool {
	return hexColor.MatchString(s)
}

// WithAlpha appends a two-digit alpha to a six-digit hex color. Other forms are
// returned unchanged.
func WithAlpha(color, alpha string) string {
	if len(color) == 7 && ValidColor(color) {
		return color + alpha
	}
	return color
}
