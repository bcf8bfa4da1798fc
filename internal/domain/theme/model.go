package theme

// KeyMode is the persisted client state key holding the preference.
const KeyMode = "appTheme"

// Mode values as persisted.
const (
	ModeDark  = "dark"
	ModeLight = "light"
)

// Palette holds the derived color tokens for one mode.
type Palette struct {
	Bg        string
	Card      string
	Text      string
	TextMuted string
	Border    string
	Primary   string
}

var (
	lightPalette = Palette{
		Bg:        "#f0f4f8",
		Card:      "#ffffff",
		Text:      "#212529",
		TextMuted: "#6c757d",
		Border:    "#e2e8f0",
		Primary:   "#0d6efd",
	}
	darkPalette = Palette{
		Bg:        "#0f172a",
		Card:      "#1e293b",
		Text:      "#f8fafc",
		TextMuted: "#94a3b8",
		Border:    "#334155",
		Primary:   "#3b82f6",
	}
)

// Preference is the light/dark choice of one client.
// INVARIANT: the palette is never stored; it is always derived from Dark.
type Preference struct {
	Dark bool
}

// Parse reads a persisted mode. Anything other than "dark" is light.
func Parse(mode string) Preference {
	return Preference{Dark: mode == ModeDark}
}

// Mode returns the persisted representation.
func (p Preference) Mode() string {
	if p.Dark {
		return ModeDark
	}
	return ModeLight
}

// Toggled returns the opposite preference.
func (p Preference) Toggled() Preference {
	return Preference{Dark: !p.Dark}
}

// Palette returns the color tokens for the preference.
// POST: same input always yields the same palette
func (p Preference) Palette() Palette {
	if p.Dark {
		return darkPalette
	}
	return lightPalette
}
