// Package audience holds the fixed catalogue of target audience segments.
package audience

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed audiences.json
var audiencesJSON []byte

type Descriptor struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	AgeGroup    string   `json:"age_group,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Category    string   `json:"category"`
	Interests   []string `json:"interests"`
}

// Context renders the descriptor as the sentence block given to the
// translation model.
func (d Descriptor) Context() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target audience: %s - %s. ", d.Label, d.Description)
	if len(d.Interests) > 0 {
		fmt.Fprintf(&b, "Key interests: %s. ", strings.Join(d.Interests, ", "))
	}
	if d.AgeGroup != "" {
		fmt.Fprintf(&b, "Age group: %s. ", d.AgeGroup)
	}
	if d.Gender != "" {
		fmt.Fprintf(&b, "Gender: %s. ", d.Gender)
	}
	return strings.TrimSpace(b.String())
}

type Catalog struct {
	ordered []Descriptor
	byID    map[string]Descriptor
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	var list []Descriptor
	if err := json.Unmarshal(audiencesJSON, &list); err != nil {
		panic(fmt.Sprintf("audience: decode embedded catalogue: %v", err))
	}
	return NewCatalog(list)
})

func Default() *Catalog {
	return defaultCatalog()
}

func NewCatalog(list []Descriptor) *Catalog {
	c := &Catalog{byID: make(map[string]Descriptor, len(list))}
	for _, d := range list {
		if _, dup := c.byID[d.ID]; dup {
			continue
		}
		c.byID[d.ID] = d
		c.ordered = append(c.ordered, d)
	}
	return c
}

func (c *Catalog) Lookup(id string) (Descriptor, bool) {
	d, ok := c.byID[strings.TrimSpace(id)]
	return d, ok
}

func (c *Catalog) Valid(id string) bool {
	_, ok := c.Lookup(id)
	return ok
}

func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func (c *Catalog) ByCategory(category string) []Descriptor {
	var out []Descriptor
	for _, d := range c.ordered {
		if strings.EqualFold(d.Category, category) {
			out = append(out, d)
		}
	}
	return out
}

func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range c.ordered {
		if _, ok := seen[d.Category]; ok {
			continue
		}
		seen[d.Category] = struct{}{}
		out = append(out, d.Category)
	}
	return out
}

// Segment splits a compound audience id such as "construction_workers" into
// its head and the optional demographic tail used in image prompts.
func Segment(id string) (head, demographic string) {
	head, demographic, _ = strings.Cut(id, "_")
	return head, demographic
}
