// ABOUTME: Logo selection for the form and success pages
// ABOUTME: Config rules first, then the stored current logo, then the default

package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/2389/loyalty-form/internal/store"
)

// resolveLogo picks the logo for a charging station. Exact evse_id rules
// win over evse_reference_contains rules regardless of order.
func (g *Gateway) resolveLogo(ctx context.Context, evseID, evseReference string) string {
	rules := g.config.Branding.Rules

	if evseID != "" {
		for _, rule := range rules {
			if rule.EVSEID != "" && rule.EVSEID == evseID {
				return rule.LogoURL
			}
		}
	}

	if evseReference != "" {
		for _, rule := range rules {
			if rule.EVSEReferenceContains != "" && strings.Contains(evseReference, rule.EVSEReferenceContains) {
				return rule.LogoURL
			}
		}
	}

	current, err := g.store.CurrentLogo(ctx)
	if err == nil {
		return current
	}
	if !errors.Is(err, store.ErrNotFound) {
		g.logger.Warn("failed to load current logo", "error", err)
	}

	return g.config.Branding.DefaultLogoURL
}
