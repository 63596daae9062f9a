package theme

import "testing"

func TestNextCyclesThroughAll(t *testing.T) {
	defer SetTheme(Nord)

	seen := map[string]bool{}
	for range Available() {
		next := Next()
		seen[next.Name] = true
		SetTheme(next)
	}
	if len(seen) != len(Available()) {
		t.Errorf("cycled through %d themes, want %d", len(seen), len(Available()))
	}
	if Current.Theme.Name != "nord" {
		t.Errorf("cycle ended on %q, want nord", Current.Theme.Name)
	}
}

func TestByName(t *testing.T) {
	if th, ok := ByName("gruvbox"); !ok || th.Name != "gruvbox" {
		t.Errorf("ByName(gruvbox) = %v, %v", th.Name, ok)
	}
	if _, ok := ByName("solarized"); ok {
		t.Error("ByName(solarized) should fail")
	}
}

func TestPalettesAreComplete(t *testing.T) {
	for _, th := range Available() {
		for name, c := range map[string]string{
			"Foreground": string(th.Foreground),
			"Primary":    string(th.Primary),
			"Error":      string(th.Error),
			"KindIssue":  string(th.KindIssue),
			"KindPR":     string(th.KindPR),
			"KindReview": string(th.KindReview),
		} {
			if c == "" {
				t.Errorf("%s: %s is unset", th.Name, name)
			}
		}
	}
}
