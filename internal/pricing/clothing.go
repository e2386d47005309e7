package pricing

import (
	"strings"

	"entrepeques/internal/apierror"

	"github.com/shopspring/decimal"
)

// Clothing category groups. Prices in the flat-rate table are keyed by one of these.
const (
	GroupCuerpoCompleto = "cuerpo_completo"
	GroupArribaCintura  = "arriba_cintura"
	GroupAbajoCintura   = "abajo_cintura"
	GroupCalzado        = "calzado"
	GroupDamaMaternidad = "dama_maternidad"
)

// GroupForSubcategory maps a clothing subcategory name to its price group.
func GroupForSubcategory(name string) (string, bool) {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "cuerpo completo"):
		return GroupCuerpoCompleto, true
	case strings.Contains(n, "arriba de cintura"):
		return GroupArribaCintura, true
	case strings.Contains(n, "abajo de cintura"):
		return GroupAbajoCintura, true
	case strings.Contains(n, "calzado"):
		return GroupCalzado, true
	case strings.Contains(n, "dama"), strings.Contains(n, "maternidad"):
		return GroupDamaMaternidad, true
	}
	return "", false
}

// ClothingEntry is one row of the flat-rate price list.
type ClothingEntry struct {
	CategoryGroup string
	GarmentType   string
	QualityLevel  string
	PurchasePrice decimal.Decimal
	Active        bool
}

// ClothingRequest carries the factors used to derive the sale price from the
// fixed purchase price. Brand renown does not apply to clothing.
type ClothingRequest struct {
	CategoryGroup string
	GarmentType   string
	QualityLevel  string
	Condition     Condition
	Demand        Demand
	Cleanliness   Cleanliness
}

// ClothingResult always includes consignment and store credit prices since the
// clothing counter offers every option.
type ClothingResult struct {
	SaleScore              int
	SuggestedPurchasePrice decimal.Decimal
	SuggestedSalePrice     decimal.Decimal
	ConsignmentPrice       decimal.Decimal
	StoreCreditPrice       decimal.Decimal
	PolicyVersion          string
}

// CalculateClothing prices a garment from its list entry. entry is whatever the
// caller found for req's (group, garment, quality) triple, nil when nothing matched.
func (c *Calculator) CalculateClothing(entry *ClothingEntry, req ClothingRequest) (ClothingResult, error) {
	if entry == nil || !entry.Active || !entry.PurchasePrice.IsPositive() {
		return ClothingResult{}, apierror.Newf(apierror.KindNoMatchingPriceEntry,
			"No hay precio registrado para %s / %s / %s", req.CategoryGroup, req.GarmentType, req.QualityLevel)
	}

	fs, err := c.policy.Scores.Lookup(req.Condition, req.Demand, req.Cleanliness, RenownNormal)
	if err != nil {
		return ClothingResult{}, err
	}
	saleScore := c.policy.SaleWeights.Score(fs)

	purchase := roundMoney(entry.PurchasePrice)
	sale := c.salePrice(purchase, c.policy.ClothingMargin, saleScore)
	return ClothingResult{
		SaleScore:              saleScore,
		SuggestedPurchasePrice: purchase,
		SuggestedSalePrice:     sale,
		ConsignmentPrice:       c.consignmentPrice(purchase, sale),
		StoreCreditPrice:       roundMoney(purchase.Mul(c.policy.StoreCreditPremium)),
		PolicyVersion:          c.policy.Version,
	}, nil
}
