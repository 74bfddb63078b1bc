// Package types provides the Go structs for the site content elements managed by
// the dashboard. Each kind embeds Base; Record is the kind-agnostic shape used on
// the wire and in storage.
package types

import (
	"fmt"
	"time"
)

// Kind identifies one of the closed set of element categories.
type Kind string

const (
	KindStatistic Kind = "statistic"
	KindPillar    Kind = "pillar"
	KindPolicy    Kind = "policy"
	KindService   Kind = "service"
	KindProject   Kind = "project"
)

// Kinds lists every kind in dashboard order.
var Kinds = []Kind{KindStatistic, KindPillar, KindPolicy, KindService, KindProject}

// resources maps each kind to its REST collection name.
var resources = map[Kind]string{
	KindStatistic: "statistics",
	KindPillar:    "pillars",
	KindPolicy:    "policies",
	KindService:   "services",
	KindProject:   "projects",
}

// Resource returns the REST collection name, e.g. "statistics".
func (k Kind) Resource() string {
	return resources[k]
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := resources[k]
	return ok
}

// ParseKind accepts either the singular kind name or its resource name.
func ParseKind(s string) (Kind, error) {
	for k, r := range resources {
		if s == string(k) || s == r {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown element kind %q", s)
}

// Base carries the fields shared by every element kind.
type Base struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Element is satisfied by every kind struct. The type parameter is the kind
// itself so generic code can rewrite the base of a value without reflection.
type Element[T any] interface {
	Kind() Kind
	Meta() Base
	WithMeta(Base) T
}

// WithOrder returns a copy of e with its order set to n.
func WithOrder[T Element[T]](e T, n int) T {
	b := e.Meta()
	b.Order = n
	return e.WithMeta(b)
}

// Statistic is a numeric highlight such as "+250 proyectos".
type Statistic struct {
	Base
	Value  float64 `json:"value"`
	Suffix string  `json:"suffix"`
	Label  string  `json:"label"`
	Icon   string  `json:"icon"`
}

func (Statistic) Kind() Kind { return KindStatistic }
func (s Statistic) Meta() Base { return s.Base }
func (s Statistic) WithMeta(b Base) Statistic { s.Base = b; return s }

// Pillar is a thematic card.
type Pillar struct {
	Base
	Icon          string `json:"icon"`
	Image         string `json:"image"`
	ImageFallback string `json:"image_fallback"`
}

func (Pillar) Kind() Kind { return KindPillar }
func (p Pillar) Meta() Base { return p.Base }
func (p Pillar) WithMeta(b Base) Pillar { p.Base = b; return p }

// Policy is a policy statement card.
type Policy struct {
	Base
	Icon          string `json:"icon"`
	Image         string `json:"image"`
	ImageFallback string `json:"image_fallback"`
}

func (Policy) Kind() Kind { return KindPolicy }
func (p Policy) Meta() Base { return p.Base }
func (p Policy) WithMeta(b Base) Policy { p.Base = b; return p }

// CTA is the call to action rendered on a service card.
type CTA struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Service describes one service offered on the site.
type Service struct {
	Base
	ImageURL         string `json:"image_url"`
	ImageURLFallback string `json:"image_url_fallback"`
	IconURL          string `json:"icon_url"`
	CTA              CTA    `json:"cta"`
}

func (Service) Kind() Kind { return KindService }
func (s Service) Meta() Base { return s.Base }
func (s Service) WithMeta(b Base) Service { s.Base = b; return s }

// Project types.
const (
	ProjectResidential    = "residencial"
	ProjectCommercial     = "comercial"
	ProjectIndustrial     = "industrial"
	ProjectInfrastructure = "infraestructura"
)

// Project is a case study.
type Project struct {
	Base
	Name             string `json:"name"`
	Type             string `json:"type"`
	ImageURL         string `json:"image_url"`
	ImageURLFallback string `json:"image_url_fallback"`
}

func (Project) Kind() Kind { return KindProject }
func (p Project) Meta() Base { return p.Base }
func (p Project) WithMeta(b Base) Project { p.Base = b; return p }

// NewBase returns a Base with the defaults applied to a fresh element.
func NewBase(title, description string) Base {
	return Base{Title: title, Description: description, Enabled: true}
}
