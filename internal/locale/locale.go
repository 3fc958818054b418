// Package locale resolves country identifiers, either ISO 3166-1 alpha-2
// codes or legacy free-text region names, into the localization data that
// prompts, translation and typography depend on.
package locale

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed countries.json
var countriesJSON []byte

var ErrUnknownLocation = errors.New("unknown location")

type UnknownLocationError struct {
	Identifier string
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("unknown location %q: not a country code or legacy region name", e.Identifier)
}

func (e *UnknownLocationError) Is(target error) bool {
	return target == ErrUnknownLocation
}

type Country struct {
	Code            string   `json:"code"`
	Name            string   `json:"name"`
	PrimaryLanguage string   `json:"primary_language"`
	Languages       []string `json:"languages"`
	Region          string   `json:"region"`
}

// Context is the resolved country fragment of a localization context.
type Context struct {
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	Region       string      `json:"region"`
	Language     string      `json:"language"`
	LanguageCode string      `json:"language_code"`
	Script       ScriptClass `json:"script"`
	RTL          bool        `json:"rtl"`
}

func (c Context) IsEnglish() bool {
	return c.Language == "English"
}

func (c Context) Direction() string {
	if c.RTL {
		return "rtl"
	}
	return "ltr"
}

// legacyAliases maps the region names older briefs used onto country codes.
var legacyAliases = map[string]string{
	"California":  "US",
	"Texas":       "US",
	"Nevada":      "US",
	"New York":    "US",
	"Florida":     "US",
	"Costa Rica":  "CR",
	"Mexico":      "MX",
	"Canada":      "CA",
	"UK":          "GB",
	"Germany":     "DE",
	"France":      "FR",
	"Japan":       "JP",
	"Australia":   "AU",
	"Brazil":      "BR",
	"Italy":       "IT",
	"Spain":       "ES",
	"China":       "CN",
	"India":       "IN",
	"South Korea": "KR",
	"Russia":      "RU",
}

type Registry struct {
	byCode  map[string]Country
	byName  map[string]string
	aliases map[string]string
	sorted  []Country
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	var countries []Country
	if err := json.Unmarshal(countriesJSON, &countries); err != nil {
		panic(fmt.Sprintf("locale: decode embedded countries: %v", err))
	}
	return NewRegistry(countries, legacyAliases)
})

// Default returns the registry built from the embedded country table.
func Default() *Registry {
	return defaultRegistry()
}

func NewRegistry(countries []Country, aliases map[string]string) *Registry {
	r := &Registry{
		byCode:  make(map[string]Country, len(countries)),
		byName:  make(map[string]string, len(countries)),
		aliases: make(map[string]string, len(aliases)),
	}
	for _, c := range countries {
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		r.byCode[c.Code] = c
		r.byName[strings.ToLower(c.Name)] = c.Code
	}
	for alias, code := range aliases {
		r.aliases[strings.ToLower(alias)] = strings.ToUpper(code)
	}

	r.sorted = make([]Country, 0, len(r.byCode))
	for _, c := range r.byCode {
		r.sorted = append(r.sorted, c)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i].Name < r.sorted[j].Name })
	return r
}

// Resolve is the single lookup path for every caller: legacy alias first,
// then country code, then canonical country name.
func (r *Registry) Resolve(identifier string) (Context, error) {
	c, ok := r.lookup(identifier)
	if !ok {
		return Context{}, &UnknownLocationError{Identifier: identifier}
	}

	code := LanguageCode(c.PrimaryLanguage)
	return Context{
		Code:         c.Code,
		Name:         c.Name,
		Region:       c.Region,
		Language:     c.PrimaryLanguage,
		LanguageCode: code,
		Script:       ScriptClassOf(code),
		RTL:          IsRTL(code),
	}, nil
}

func (r *Registry) lookup(identifier string) (Country, bool) {
	key := strings.TrimSpace(identifier)
	if key == "" {
		return Country{}, false
	}
	if code, ok := r.aliases[strings.ToLower(key)]; ok {
		if c, ok := r.byCode[code]; ok {
			return c, true
		}
	}
	if c, ok := r.byCode[strings.ToUpper(key)]; ok {
		return c, true
	}
	if code, ok := r.byName[strings.ToLower(key)]; ok {
		return r.byCode[code], true
	}
	return Country{}, false
}

func (r *Registry) ByCode(code string) (Country, bool) {
	c, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

func (r *Registry) ByName(name string) (Country, bool) {
	code, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Country{}, false
	}
	return r.byCode[code], true
}

// All returns every country sorted by name.
func (r *Registry) All() []Country {
	out := make([]Country, len(r.sorted))
	copy(out, r.sorted)
	return out
}

func (r *Registry) ByRegion(region string) []Country {
	var out []Country
	for _, c := range r.sorted {
		if c.Region == region {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Regions() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range r.sorted {
		if _, ok := seen[c.Region]; ok {
			continue
		}
		seen[c.Region] = struct{}{}
		out = append(out, c.Region)
	}
	sort.Strings(out)
	return out
}

// Search matches the query against name, code and primary language.
func (r *Registry) Search(query string) []Country {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return r.All()
	}

	var out []Country
	for _, c := range r.sorted {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Code), q) ||
			strings.Contains(strings.ToLower(c.PrimaryLanguage), q) {
			out = append(out, c)
		}
	}
	return out
}

// Identifiers lists every accepted input: codes and legacy aliases.
func (r *Registry) Identifiers() []string {
	out := make([]string, 0, len(r.byCode)+len(legacyAliases))
	for code := range r.byCode {
		out = append(out, code)
	}
	for alias := range r.aliases {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}
