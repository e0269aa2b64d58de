// ABOUTME: Glyphs for the TUI with a plain Unicode fallback
// ABOUTME: Nerd Font glyphs are used only when the terminal is known to ship one

package icons

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

var nerdFonts = sync.OnceValue(func() bool {
	return detect(os.Getenv)
})

// detect honours EQUIPLEND_NERD_FONTS, then guesses from the terminal name
func detect(getenv func(string) string) bool {
	if v := getenv("EQUIPLEND_NERD_FONTS"); v != "" {
		on, err := strconv.ParseBool(v)
		return err == nil && on
	}

	program := strings.ToLower(getenv("TERM_PROGRAM"))
	term := strings.ToLower(getenv("TERM"))
	for _, name := range []string{"iterm", "alacritty", "wezterm", "kitty", "ghostty"} {
		if strings.Contains(program, name) || strings.Contains(term, name) {
			return true
		}
	}
	return false
}

// Icon pairs a Nerd Font glyph with its fallback
type Icon struct {
	Glyph    string
	Fallback string
}

func (i Icon) String() string {
	if nerdFonts() {
		return i.Glyph
	}
	return i.Fallback
}

var (
	App     = Icon{"\U000f0322", "◈"} // nf-md-laptop
	Lock    = Icon{"\uf023", "⚿"}     // nf-fa-lock
	Student = Icon{"\U000f0474", "✎"} // nf-md-school
	Bell    = Icon{"\uf0f3", "♪"}     // nf-fa-bell

	CheckOK  = Icon{"\uf058", "✓"} // nf-fa-check_circle
	Info     = Icon{"\uf05a", "ℹ"} // nf-fa-info_circle
	Warning  = Icon{"\uf071", "⚠"} // nf-fa-warning
	Critical = Icon{"\uf057", "✗"} // nf-fa-times_circle
)
