package service

import (
	"context"
	"errors"
	"strings"

	"entrepeques/internal/apierror"
	"entrepeques/internal/dto"
	"entrepeques/internal/model"
	"entrepeques/internal/pricing"
	"entrepeques/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type RopaService interface {
	Calcular(ctx context.Context, req dto.CalcularRopaRequest) (*dto.RopaResultadoResponse, error)
	// ListarPrecios returns the active price list, optionally for one group.
	ListarPrecios(ctx context.Context, grupo string) ([]dto.PrecioRopaResponse, error)
	TiposPrenda(ctx context.Context, grupo string) ([]string, error)
}

// PriceCache keeps the clothing price list out of Postgres on hot paths.
// *infra.Cache implements it.
type PriceCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}) error
}

// Redis layout of the clothing price list cache: PrefijoCacheRopa + ClavePreciosRopa + grupo.
// Catalog seeding drops every ClavePreciosRopa key after changing prices.
const (
	PrefijoCacheRopa = "entrepeques:ropa:"
	ClavePreciosRopa = "precios:"
)

var gruposRopa = map[string]bool{
	pricing.GroupCuerpoCompleto: true,
	pricing.GroupArribaCintura:  true,
	pricing.GroupAbajoCintura:   true,
	pricing.GroupCalzado:        true,
	pricing.GroupDamaMaternidad: true,
}

type ropaService struct {
	precios repository.PrecioRopaRepository
	subcats repository.SubcategoriaRepository
	calc    *pricing.Calculator
	cache   PriceCache
}

func NewRopaService(precios repository.PrecioRopaRepository, subcats repository.SubcategoriaRepository, calc *pricing.Calculator, cache PriceCache) RopaService {
	return &ropaService{precios: precios, subcats: subcats, calc: calc, cache: cache}
}

func (s *ropaService) Calcular(ctx context.Context, req dto.CalcularRopaRequest) (*dto.RopaResultadoResponse, error) {
	grupo, err := s.resolverGrupo(ctx, req)
	if err != nil {
		return nil, err
	}

	cr := pricing.ClothingRequest{
		CategoryGroup: grupo,
		GarmentType:   strings.TrimSpace(req.GarmentType),
		QualityLevel:  strings.ToLower(strings.TrimSpace(req.QualityLevel)),
	}
	var ok bool
	if cr.Condition, ok = pricing.ParseCondition(req.ConditionState); !ok {
		return nil, apierror.Newf(apierror.KindInvalidInput, "Estado de conservación no válido: %q", req.ConditionState)
	}
	if cr.Demand, ok = pricing.ParseDemand(req.Demand); !ok {
		return nil, apierror.Newf(apierror.KindInvalidInput, "Demanda no válida: %q", req.Demand)
	}
	if cr.Cleanliness, ok = pricing.ParseCleanliness(req.Cleanliness); !ok {
		return nil, apierror.Newf(apierror.KindInvalidInput, "Limpieza no válida: %q", req.Cleanliness)
	}

	var entry *pricing.ClothingEntry
	row, err := s.precios.FindActivo(ctx, cr.CategoryGroup, cr.GarmentType, cr.QualityLevel)
	switch {
	case err == nil:
		entry = entryFrom(row)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	res, err := s.calc.CalculateClothing(entry, cr)
	if err != nil {
		return nil, err
	}
	return &dto.RopaResultadoResponse{
		CategoryGroup:          cr.CategoryGroup,
		GarmentType:            cr.GarmentType,
		QualityLevel:           cr.QualityLevel,
		SaleScore:              res.SaleScore,
		SuggestedPurchasePrice: res.SuggestedPurchasePrice,
		SuggestedSalePrice:     res.SuggestedSalePrice,
		ConsignmentPrice:       res.ConsignmentPrice,
		StoreCreditPrice:       res.StoreCreditPrice,
		PolicyVersion:          res.PolicyVersion,
	}, nil
}

// resolverGrupo prefers the explicit group and falls back to the subcategory name.
func (s *ropaService) resolverGrupo(ctx context.Context, req dto.CalcularRopaRequest) (string, error) {
	if req.CategoryGroup != "" {
		if !gruposRopa[req.CategoryGroup] {
			return "", apierror.Newf(apierror.KindInvalidInput, "Grupo de ropa no válido: %q", req.CategoryGroup)
		}
		return req.CategoryGroup, nil
	}
	if req.SubcategoryID == "" {
		return "", apierror.Newf(apierror.KindInvalidInput, "Indica category_group o subcategory_id")
	}
	id, err := parseID(req.SubcategoryID, "subcategory_id")
	if err != nil {
		return "", err
	}
	sub, err := s.subcats.FindByID(ctx, id)
	if err != nil {
		return "", notFound(err, "Subcategoría no encontrada")
	}
	grupo, ok := pricing.GroupForSubcategory(sub.Nombre)
	if !sub.EsRopa || !ok {
		return "", apierror.Newf(apierror.KindInvalidInput, "La subcategoría %s no tiene lista de precios de ropa", sub.Nombre)
	}
	return grupo, nil
}

func (s *ropaService) ListarPrecios(ctx context.Context, grupo string) ([]dto.PrecioRopaResponse, error) {
	if grupo != "" && !gruposRopa[grupo] {
		return nil, apierror.Newf(apierror.KindInvalidInput, "Grupo de ropa no válido: %q", grupo)
	}

	key := ClavePreciosRopa + grupo
	var cached []dto.PrecioRopaResponse
	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("clothing price cache read failed")
		}
		if hit {
			return cached, nil
		}
	}

	rows, err := s.precios.List(ctx, grupo)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PrecioRopaResponse, len(rows))
	for i, r := range rows {
		out[i] = dto.PrecioRopaResponse{
			ID:            r.ID.String(),
			CategoryGroup: r.GrupoCategoria,
			GarmentType:   r.TipoPrenda,
			QualityLevel:  r.NivelCalidad,
			PurchasePrice: r.PrecioCompra,
		}
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, out); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("clothing price cache write failed")
		}
	}
	return out, nil
}

func (s *ropaService) TiposPrenda(ctx context.Context, grupo string) ([]string, error) {
	if !gruposRopa[grupo] {
		return nil, apierror.Newf(apierror.KindInvalidInput, "Grupo de ropa no válido: %q", grupo)
	}
	tipos, err := s.precios.TiposPrenda(ctx, grupo)
	if err != nil {
		return nil, err
	}
	if tipos == nil {
		tipos = []string{}
	}
	return tipos, nil
}

func entryFrom(r *model.PrecioRopa) *pricing.ClothingEntry {
	return &pricing.ClothingEntry{
		CategoryGroup: r.GrupoCategoria,
		GarmentType:   r.TipoPrenda,
		QualityLevel:  r.NivelCalidad,
		PurchasePrice: r.PrecioCompra,
		Active:        r.Activo,
	}
}
