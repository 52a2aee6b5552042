package ranking

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/riftcoach/insight/internal/domain/types"
)

// Template is a recommendation text for a category, optionally narrowed to
// a finding code, a set of roles and a set of elo bands. Empty narrowing
// fields match everything.
type Template struct {
	ID       string
	Category types.Category
	Code     string
	Roles    []types.Role
	Bands    []types.EloBand
	Text     string
}

// applies reports whether t can be used for the given group and scope.
func (t Template) applies(cat types.Category, code string, role types.Role, band types.EloBand) bool {
	if t.Category != cat || (t.Code != "" && t.Code != code) {
		return false
	}
	if len(t.Roles) > 0 && !containsRole(t.Roles, role) {
		return false
	}
	if len(t.Bands) > 0 && !containsBand(t.Bands, band) {
		return false
	}
	return true
}

// specificity orders applicable templates. Code beats role beats band.
func (t Template) specificity() int {
	s := 0
	if t.Code != "" {
		s += 4
	}
	if len(t.Roles) > 0 {
		s += 2
	}
	if len(t.Bands) > 0 {
		s++
	}
	return s
}

// Catalog is an immutable, ordered set of templates.
type Catalog struct {
	templates []Template
}

// NewCatalog validates templates and builds a catalog.
func NewCatalog(templates ...Template) (*Catalog, error) {
	seen := make(map[string]bool, len(templates))
	for i, t := range templates {
		switch {
		case t.ID == "":
			return nil, fmt.Errorf("%w: template %d has no id", ErrInvalidTemplate, i)
		case seen[t.ID]:
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidTemplate, t.ID)
		case strings.TrimSpace(t.Text) == "":
			return nil, fmt.Errorf("%w: %s has no text", ErrInvalidTemplate, t.ID)
		}
		if _, err := types.ParseCategory(string(t.Category)); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTemplate, t.ID, err)
		}
		seen[t.ID] = true
	}
	return &Catalog{templates: append([]Template(nil), templates...)}, nil
}

// Len is the number of templates.
func (c *Catalog) Len() int { return len(c.templates) }

// Match returns the most specific applicable template. Among equally
// specific templates the first in catalog order wins.
func (c *Catalog) Match(cat types.Category, code string, role types.Role, band types.EloBand) (Template, bool) {
	best, found := Template{}, false
	for _, t := range c.templates {
		if !t.applies(cat, code, role, band) {
			continue
		}
		if !found || t.specificity() > best.specificity() {
			best, found = t, true
		}
	}
	return best, found
}

// templateFile is the YAML shape of a catalog file.
type templateFile struct {
	ID       string   `koanf:"id"`
	Category string   `koanf:"category"`
	Code     string   `koanf:"code"`
	Roles    []string `koanf:"roles"`
	Bands    []string `koanf:"bands"`
	Text     string   `koanf:"text"`
}

// LoadCatalog reads a YAML catalog of the form
//
//	templates:
//	  - id: vision-support
//	    category: vision
//	    roles: [UTILITY]
//	    text: "..."
func LoadCatalog(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadCatalog, err)
	}
	var raw []templateFile
	if err := k.UnmarshalWithConf("templates", &raw, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadCatalog, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s has no templates", ErrLoadCatalog, path)
	}

	out := make([]Template, 0, len(raw))
	for _, r := range raw {
		t := Template{ID: r.ID, Code: r.Code, Text: r.Text}
		cat, err := types.ParseCategory(r.Category)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTemplate, r.ID, err)
		}
		t.Category = cat
		for _, s := range r.Roles {
			role, err := types.ParseRole(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTemplate, r.ID, err)
			}
			t.Roles = append(t.Roles, role)
		}
		for _, s := range r.Bands {
			band, err := types.ParseEloBand(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTemplate, r.ID, err)
			}
			t.Bands = append(t.Bands, band)
		}
		out = append(out, t)
	}
	return NewCatalog(out...)
}

// DefaultCatalog is the compiled-in template set.
func DefaultCatalog() *Catalog {
	laners := []types.Role{types.RoleTop, types.RoleMiddle, types.RoleBottom}
	c, err := NewCatalog(
		Template{ID: "vision-general", Category: types.CategoryVision,
			Text: "Keep a ward down at all times: you had no vision out during {window} ({count} gap(s) across {matches} match(es))."},
		Template{ID: "vision-support", Category: types.CategoryVision, Roles: []types.Role{types.RoleUtility},
			Text: "As {role}, refresh vision before every objective. Your first gap started at {first_at} and ran {window}."},
		Template{ID: "vision-low-band", Category: types.CategoryVision, Code: "no-wards", Bands: []types.EloBand{types.BandLow},
			Text: "Buy a control ward every back and place your trinket whenever it is up. You had no wards out during {window}."},
		Template{ID: "deaths-cluster", Category: types.CategoryDeath, Code: "death-cluster",
			Text: "After a death, play safe until your team regroups: you died repeatedly around {first_at} ({count} time(s))."},
		Template{ID: "deaths-total", Category: types.CategoryDeath, Code: "high-deaths",
			Text: "Each death gives the enemy gold and map control. Track enemy junglers and cut risky plays in {matches} match(es)."},
		Template{ID: "objective-death", Category: types.CategoryObjective, Code: "died-before-objective",
			Text: "Stay alive in the minute before a major objective spawns: you died at {first_at} and the enemy took it."},
		Template{ID: "objective-presence-jungle", Category: types.CategoryObjective, Code: "low-objective-presence",
			Roles: []types.Role{types.RoleJungle, types.RoleUtility},
			Text:  "As {role}, move to objectives with your team. You joined few of your team's takes."},
		Template{ID: "positioning-general", Category: types.CategoryPositioning,
			Text: "Ward before walking far from your lane: you died overextended around {first_at} ({count} time(s))."},
		Template{ID: "trading-general", Category: types.CategoryTrading,
			Text: "Trade when your lane opponent uses a key cooldown. You lost a gold lead around {first_at}."},
		Template{ID: "trading-low-band", Category: types.CategoryTrading, Bands: []types.EloBand{types.BandLow},
			Text: "Back off when low on health instead of trading: you fell behind in lane around {first_at}."},
		Template{ID: "wave-laner", Category: types.CategoryWave, Roles: laners,
			Text: "Keep farming between fights: you missed waves during {window} ({count} stretch(es))."},
	)
	if err != nil {
		panic(err)
	}
	return c
}

func containsRole(list []types.Role, r types.Role) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}

func containsBand(list []types.EloBand, b types.EloBand) bool {
	for _, v := range list {
		if v == b {
			return true
		}
	}
	return false
}
