package pricing_test

import (
	"testing"

	"entrepeques/internal/apierror"
	"entrepeques/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clothingRequest() pricing.ClothingRequest {
	return pricing.ClothingRequest{
		CategoryGroup: pricing.GroupArribaCintura,
		GarmentType:   "playera",
		QualityLevel:  "medio",
		Condition:     pricing.ConditionBueno,
		Demand:        pricing.DemandMedia,
		Cleanliness:   pricing.CleanlinessRegular,
	}
}

func TestCalculateClothing(t *testing.T) {
	calc := newCalculator(t)
	entry := &pricing.ClothingEntry{
		CategoryGroup: pricing.GroupArribaCintura,
		GarmentType:   "playera",
		QualityLevel:  "medio",
		PurchasePrice: dec("50"),
		Active:        true,
	}

	res, err := calc.CalculateClothing(entry, clothingRequest())
	require.NoError(t, err)

	assert.Equal(t, 50, res.SaleScore)
	assert.True(t, res.SuggestedPurchasePrice.Equal(dec("50")))
	// 50 × 2.0 × (0.5 + 0.5)
	assert.True(t, res.SuggestedSalePrice.Equal(dec("100")), res.SuggestedSalePrice.String())
	assert.True(t, res.ConsignmentPrice.Equal(dec("80")), res.ConsignmentPrice.String())
	assert.True(t, res.StoreCreditPrice.Equal(dec("55")), res.StoreCreditPrice.String())
}

func TestCalculateClothing_NoMatchingEntry(t *testing.T) {
	calc := newCalculator(t)

	cases := map[string]*pricing.ClothingEntry{
		"missing":  nil,
		"inactive": {PurchasePrice: dec("50"), Active: false},
		"zero":     {PurchasePrice: dec("0"), Active: true},
	}
	for name, entry := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := calc.CalculateClothing(entry, clothingRequest())
			require.Error(t, err)
			assert.True(t, apierror.IsKind(err, apierror.KindNoMatchingPriceEntry))
			assert.True(t, res.SuggestedPurchasePrice.IsZero())
		})
	}
}

func TestCalculateClothing_InvalidFactor(t *testing.T) {
	calc := newCalculator(t)
	req := clothingRequest()
	req.Demand = "altísima"

	_, err := calc.CalculateClothing(&pricing.ClothingEntry{PurchasePrice: dec("50"), Active: true}, req)
	assert.True(t, apierror.IsKind(err, apierror.KindInvalidInput))
}

func TestGroupForSubcategory(t *testing.T) {
	cases := map[string]string{
		"Ropa Cuerpo Completo":   pricing.GroupCuerpoCompleto,
		"Ropa arriba de cintura": pricing.GroupArribaCintura,
		"Ropa Abajo de Cintura":  pricing.GroupAbajoCintura,
		"Calzado":                pricing.GroupCalzado,
		"Ropa de Dama":           pricing.GroupDamaMaternidad,
		"Maternidad":             pricing.GroupDamaMaternidad,
	}
	for name, want := range cases {
		got, ok := pricing.GroupForSubcategory(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := pricing.GroupForSubcategory("Carriolas")
	assert.False(t, ok)
}
