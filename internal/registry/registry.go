// Package registry resolves the consent type catalog. Types come from
// configuration; when none are configured a built-in catalog is used.
package registry

import (
	"github.com/florenceegi/gdpr-api/internal/config"
	"github.com/florenceegi/gdpr-api/internal/models"
)

// Legal bases
const (
	LegalBasisConsent            = "consent"
	LegalBasisLegitimateInterest = "legitimate_interest"
	LegalBasisContract           = "contract"
	LegalBasisLegalObligation    = "legal_obligation"
)

// Registry holds the resolved consent type catalog. Order follows the
// configuration; lookups are by slug.
type Registry struct {
	types []models.ConsentTypeInfo
	index map[string]int
}

// defaultCatalog is used when configuration provides no types
func defaultCatalog() []models.ConsentTypeInfo {
	return []models.ConsentTypeInfo{
		{
			Slug:         "functional",
			Category:     "platform-services",
			LegalBasis:   LegalBasisLegitimateInterest,
			Required:     true,
			DefaultValue: true,
			CanWithdraw:  false,
			Description:  "Essential platform functionality",
		},
		{
			Slug:         "analytics",
			Category:     "analytics",
			LegalBasis:   LegalBasisConsent,
			Required:     false,
			DefaultValue: false,
			CanWithdraw:  true,
			Description:  "Anonymous usage analytics",
		},
		{
			Slug:         "marketing",
			Category:     "marketing",
			LegalBasis:   LegalBasisConsent,
			Required:     false,
			DefaultValue: false,
			CanWithdraw:  true,
			Description:  "Marketing communications",
		},
		{
			Slug:         "profiling",
			Category:     "personalization",
			LegalBasis:   LegalBasisConsent,
			Required:     false,
			DefaultValue: false,
			CanWithdraw:  true,
			Description:  "Content personalization and profiling",
		},
		{
			Slug:         "allow_personal_data_processing",
			Category:     "platform-services",
			LegalBasis:   LegalBasisConsent,
			Required:     false,
			DefaultValue: false,
			CanWithdraw:  true,
			Description:  "Processing of personal data for extended platform features",
		},
	}
}

// New builds a registry from configuration, falling back to the
// built-in catalog when no types are configured.
func New(cfg *config.ConsentConfig) *Registry {
	var types []models.ConsentTypeInfo
	if cfg != nil && len(cfg.Types) > 0 {
		types = make([]models.ConsentTypeInfo, 0, len(cfg.Types))
		for _, t := range cfg.Types {
			types = append(types, models.ConsentTypeInfo{
				Slug:         t.Slug,
				Category:     t.Category,
				LegalBasis:   t.LegalBasis,
				Required:     t.Required,
				DefaultValue: t.DefaultValue,
				CanWithdraw:  t.CanWithdraw,
				Description:  t.Description,
			})
		}
	} else {
		types = defaultCatalog()
	}

	index := make(map[string]int, len(types))
	for i, t := range types {
		index[t.Slug] = i
	}

	return &Registry{
		types: types,
		index: index,
	}
}

// Types returns the full catalog in declaration order
func (r *Registry) Types() []models.ConsentTypeInfo {
	out := make([]models.ConsentTypeInfo, len(r.types))
	copy(out, r.types)
	return out
}

// Get returns the catalog entry for a slug
func (r *Registry) Get(slug string) (models.ConsentTypeInfo, bool) {
	i, ok := r.index[slug]
	if !ok {
		return models.ConsentTypeInfo{}, false
	}
	return r.types[i], true
}

// IsKnown reports whether a slug is in the catalog
func (r *Registry) IsKnown(slug string) bool {
	_, ok := r.index[slug]
	return ok
}

// Slugs returns the catalog slugs in declaration order
func (r *Registry) Slugs() []string {
	slugs := make([]string, 0, len(r.types))
	for _, t := range r.types {
		slugs = append(slugs, t.Slug)
	}
	return slugs
}

// Required returns the slugs of types that cannot be refused
func (r *Registry) Required() []string {
	var slugs []string
	for _, t := range r.types {
		if t.Required {
			slugs = append(slugs, t.Slug)
		}
	}
	return slugs
}
