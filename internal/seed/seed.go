package seed

import (
	"context"
	"fmt"
	"sort"
	"strings"

	artistdomain "github.com/smallbiznis/dreamforge/internal/artist/domain"
	"github.com/smallbiznis/dreamforge/internal/config"
	creditpackdomain "github.com/smallbiznis/dreamforge/internal/creditpack/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Packs   creditpackdomain.Service
	Artists artistdomain.Service
}

// Apply upserts every catalog entry. Entries absent from the catalog are left
// untouched so historic purchase records keep resolving.
func Apply(ctx context.Context, catalog *Catalog, packs creditpackdomain.Service, artists artistdomain.Service) error {
	if catalog == nil {
		return nil
	}
	for _, entry := range catalog.Packs {
		if err := packs.Upsert(ctx, toPack(entry)); err != nil {
			return fmt.Errorf("seed pack %q: %w", entry.ID, err)
		}
	}
	for _, entry := range catalog.Artists {
		if err := artists.Upsert(ctx, toArtist(entry)); err != nil {
			return fmt.Errorf("seed artist %q: %w", entry.ID, err)
		}
	}
	return nil
}

func toPack(entry PackEntry) creditpackdomain.CreditPack {
	providers := make([]string, 0, len(entry.Variants))
	for provider := range entry.Variants {
		providers = append(providers, provider)
	}
	sort.Strings(providers)

	variants := make([]creditpackdomain.Variant, 0, len(providers))
	for _, provider := range providers {
		variants = append(variants, creditpackdomain.Variant{
			Provider:  provider,
			VariantID: entry.Variants[provider],
		})
	}
	return creditpackdomain.CreditPack{
		ID:           strings.TrimSpace(entry.ID),
		Name:         strings.TrimSpace(entry.Name),
		CreditAmount: entry.Credits,
		IsActive:     isActive(entry.Active),
		Variants:     variants,
	}
}

func toArtist(entry ArtistEntry) artistdomain.Artist {
	return artistdomain.Artist{
		ID:               strings.TrimSpace(entry.ID),
		Name:             strings.TrimSpace(entry.Name),
		StyleDescription: strings.TrimSpace(entry.Style),
		IsActive:         isActive(entry.Active),
		SortOrder:        entry.SortOrder,
	}
}

func isActive(flag *bool) bool {
	return flag == nil || *flag
}

func run(lc fx.Lifecycle, p Params) {
	log := p.Log.Named("seed")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			catalog, source, err := LoadCatalog(p.Cfg.Catalog.File)
			if err != nil {
				return err
			}
			if err := Apply(ctx, catalog, p.Packs, p.Artists); err != nil {
				return err
			}
			log.Info("catalog applied",
				zap.String("source", source),
				zap.Int("packs", len(catalog.Packs)),
				zap.Int("artists", len(catalog.Artists)),
			)
			return nil
		},
	})
}

var Module = fx.Module("seed",
	fx.Invoke(run),
)
