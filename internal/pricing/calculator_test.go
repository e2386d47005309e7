package pricing_test

import (
	"errors"
	"testing"

	"entrepeques/internal/apierror"
	"entrepeques/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCalculator(t *testing.T) *pricing.Calculator {
	t.Helper()
	p, err := pricing.DefaultPolicy()
	require.NoError(t, err)
	return pricing.NewCalculator(p)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func usedConfig() *pricing.SubcategoryConfig {
	return &pricing.SubcategoryConfig{
		GapNew:     dec("0.6"),
		GapUsed:    dec("0.4"),
		MarginNew:  dec("1.3"),
		MarginUsed: dec("1.5"),
	}
}

func midDescriptor() pricing.Descriptor {
	return pricing.Descriptor{
		SubcategoryID: uuid.New(),
		Renown:        pricing.RenownNormal,
		Condition:     pricing.ConditionBueno,
		Demand:        pricing.DemandMedia,
		Cleanliness:   pricing.CleanlinessRegular,
		Status:        pricing.StatusUsado,
		Modality:      pricing.ModalityCompraDirecta,
		NewPrice:      dec("1000"),
	}
}

func TestCalculate_MidRangeUsedItem(t *testing.T) {
	calc := newCalculator(t)

	res, err := calc.Calculate(midDescriptor(), usedConfig())
	require.NoError(t, err)

	assert.Equal(t, 50, res.PurchaseScore)
	assert.Equal(t, 50, res.SaleScore)
	assert.True(t, res.SuggestedPurchasePrice.Equal(dec("200")), res.SuggestedPurchasePrice.String())
	assert.True(t, res.SuggestedSalePrice.Equal(dec("300")), res.SuggestedSalePrice.String())
	assert.True(t, res.StoreCreditPrice.Equal(dec("220")), res.StoreCreditPrice.String())
	assert.Nil(t, res.ConsignmentPrice, "direct purchase must not quote consignment")
	assert.Equal(t, "2025.1", res.PolicyVersion)
}

func TestCalculate_Consignment(t *testing.T) {
	calc := newCalculator(t)
	d := midDescriptor()
	d.Modality = pricing.ModalityConsignacion

	res, err := calc.Calculate(d, usedConfig())
	require.NoError(t, err)

	require.NotNil(t, res.ConsignmentPrice)
	assert.True(t, res.ConsignmentPrice.Equal(dec("240")), res.ConsignmentPrice.String())
	assert.True(t, res.ConsignmentPrice.GreaterThan(res.SuggestedPurchasePrice))
}

func TestCalculate_NewStatusUsesNewPair(t *testing.T) {
	calc := newCalculator(t)
	d := midDescriptor()
	d.Status = pricing.StatusNuevo
	d.Condition = pricing.ConditionExcelente
	d.Demand = pricing.DemandAlta
	d.Cleanliness = pricing.CleanlinessBuena
	d.Renown = pricing.RenownPremium
	d.Modality = pricing.ModalityConsignacion

	res, err := calc.Calculate(d, usedConfig())
	require.NoError(t, err)

	assert.Equal(t, 100, res.PurchaseScore)
	assert.Equal(t, 100, res.SaleScore)
	assert.True(t, res.SuggestedPurchasePrice.Equal(dec("600")), res.SuggestedPurchasePrice.String())
	// 600 × 1.3 × (0.5 + 1.0)
	assert.True(t, res.SuggestedSalePrice.Equal(dec("1170")), res.SuggestedSalePrice.String())
	assert.True(t, res.ConsignmentPrice.Equal(dec("936")), res.ConsignmentPrice.String())
}

func TestCalculate_UsedAsNewIsPricedAsNew(t *testing.T) {
	calc := newCalculator(t)
	d := midDescriptor()
	d.Status = pricing.StatusUsadoComoNuevo

	res, err := calc.Calculate(d, usedConfig())
	require.NoError(t, err)
	// 1000 × gap_new 0.6 × 50/100
	assert.True(t, res.SuggestedPurchasePrice.Equal(dec("300")), res.SuggestedPurchasePrice.String())
	// 300 × margin_new 1.3 × (0.5 + 0.5)
	assert.True(t, res.SuggestedSalePrice.Equal(dec("390")), res.SuggestedSalePrice.String())
}

func TestCalculate_NormalizesStatusBeforeChoosingPair(t *testing.T) {
	calc := newCalculator(t)
	for _, raw := range []string{"Nuevo", " NUEVO ", "Usado  Como Nuevo"} {
		d := midDescriptor()
		d.Status = pricing.Status(raw)

		res, err := calc.Calculate(d, usedConfig())
		require.NoError(t, err, raw)
		assert.True(t, res.SuggestedPurchasePrice.Equal(dec("300")), "%q: %s", raw, res.SuggestedPurchasePrice)
	}

	d := midDescriptor()
	d.Status = "Usado"
	res, err := calc.Calculate(d, usedConfig())
	require.NoError(t, err)
	assert.True(t, res.SuggestedPurchasePrice.Equal(dec("200")), res.SuggestedPurchasePrice.String())
}

func TestCalculate_MinimumScoresHitFloor(t *testing.T) {
	calc := newCalculator(t)
	d := pricing.Descriptor{
		SubcategoryID: uuid.New(),
		Renown:        pricing.RenownSencilla,
		Condition:     pricing.ConditionRegular,
		Demand:        pricing.DemandBaja,
		Cleanliness:   pricing.CleanlinessMala,
		Status:        pricing.StatusUsado,
		Modality:      pricing.ModalityConsignacion,
		NewPrice:      dec("10"),
	}

	res, err := calc.Calculate(d, usedConfig())
	require.NoError(t, err)

	assert.Equal(t, 20, res.PurchaseScore)
	assert.True(t, res.SuggestedPurchasePrice.Equal(dec("10")), "floor price expected, got %s", res.SuggestedPurchasePrice)
	assert.True(t, res.SuggestedSalePrice.GreaterThanOrEqual(res.SuggestedPurchasePrice))
	assert.True(t, res.ConsignmentPrice.GreaterThan(res.SuggestedPurchasePrice))
}

func TestCalculate_ZeroGapStillPositive(t *testing.T) {
	calc := newCalculator(t)
	cfg := usedConfig()
	cfg.GapUsed = decimal.Zero

	res, err := calc.Calculate(midDescriptor(), cfg)
	require.NoError(t, err)
	assert.True(t, res.SuggestedPurchasePrice.IsPositive())
}

func TestCalculate_SaleClampedToPurchase(t *testing.T) {
	calc := newCalculator(t)
	cfg := usedConfig()
	cfg.MarginUsed = dec("0.5")
	d := midDescriptor()
	d.Modality = pricing.ModalityConsignacion

	res, err := calc.Calculate(d, cfg)
	require.NoError(t, err)

	assert.True(t, res.SuggestedSalePrice.Equal(res.SuggestedPurchasePrice),
		"sale %s should be clamped to purchase %s", res.SuggestedSalePrice, res.SuggestedPurchasePrice)
	// purchase × premium wins over a depressed sale price.
	assert.True(t, res.ConsignmentPrice.Equal(dec("240")), res.ConsignmentPrice.String())
}

func TestCalculate_RoundsHalfUpToCents(t *testing.T) {
	calc := newCalculator(t)
	d := midDescriptor()
	d.NewPrice = dec("333.33") // 333.33 × 0.4 × 0.5 = 66.666

	res, err := calc.Calculate(d, usedConfig())
	require.NoError(t, err)
	assert.Equal(t, "66.67", res.SuggestedPurchasePrice.StringFixed(2))
}

func TestCalculate_InvalidInput(t *testing.T) {
	calc := newCalculator(t)

	cases := map[string]func(d *pricing.Descriptor){
		"zero price":      func(d *pricing.Descriptor) { d.NewPrice = decimal.Zero },
		"negative price":  func(d *pricing.Descriptor) { d.NewPrice = dec("-5") },
		"bad condition":   func(d *pricing.Descriptor) { d.Condition = "pésimo" },
		"bad demand":      func(d *pricing.Descriptor) { d.Demand = "nula" },
		"bad cleanliness": func(d *pricing.Descriptor) { d.Cleanliness = "sucia" },
		"bad renown":      func(d *pricing.Descriptor) { d.Renown = "Desconocida" },
		"bad status":      func(d *pricing.Descriptor) { d.Status = "roto" },
		"bad modality":    func(d *pricing.Descriptor) { d.Modality = "alquiler" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := midDescriptor()
			mutate(&d)
			_, err := calc.Calculate(d, usedConfig())
			require.Error(t, err)
			assert.True(t, apierror.IsKind(err, apierror.KindInvalidInput), err.Error())
		})
	}
}

func TestCalculate_MissingConfig(t *testing.T) {
	calc := newCalculator(t)

	_, err := calc.Calculate(midDescriptor(), nil)
	assert.True(t, apierror.IsKind(err, apierror.KindMissingConfig))

	cfg := usedConfig()
	cfg.MarginUsed = dec("-1")
	_, err = calc.Calculate(midDescriptor(), cfg)
	assert.True(t, apierror.IsKind(err, apierror.KindMissingConfig))
}

// ── Batch ────────────────────────────────────────────────────────────────────

func TestCalculateBatch_PreservesOrder(t *testing.T) {
	calc := newCalculator(t)
	cfg := usedConfig()
	lookup := func(uuid.UUID) (*pricing.SubcategoryConfig, error) { return cfg, nil }

	prices := []string{"1000", "10", "500", "2500"}
	items := make([]pricing.Descriptor, len(prices))
	for i, p := range prices {
		items[i] = midDescriptor()
		items[i].NewPrice = dec(p)
	}

	results, err := calc.CalculateBatch(items, lookup)
	require.NoError(t, err)
	require.Len(t, results, len(items))

	for i, d := range items {
		single, err := calc.Calculate(d, cfg)
		require.NoError(t, err)
		assert.Equal(t, single, results[i], "item %d", i)
	}
}

func TestCalculateBatch_Empty(t *testing.T) {
	calc := newCalculator(t)
	results, err := calc.CalculateBatch(nil, func(uuid.UUID) (*pricing.SubcategoryConfig, error) {
		t.Fatal("lookup must not be called")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCalculateBatch_FailingItemAbortsWithPosition(t *testing.T) {
	calc := newCalculator(t)
	known := uuid.New()
	lookup := func(id uuid.UUID) (*pricing.SubcategoryConfig, error) {
		if id == known {
			return usedConfig(), nil
		}
		return nil, nil
	}
	first := midDescriptor()
	first.SubcategoryID = known
	second := midDescriptor()

	results, err := calc.CalculateBatch([]pricing.Descriptor{first, second}, lookup)
	require.Error(t, err)
	assert.Nil(t, results)

	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.KindMissingConfig, apiErr.Kind)
	assert.Contains(t, apiErr.Message, "Artículo 2")
}

func TestCalculateBatch_LookupFailurePassesThrough(t *testing.T) {
	calc := newCalculator(t)
	boom := errors.New("connection refused")

	_, err := calc.CalculateBatch([]pricing.Descriptor{midDescriptor()}, func(uuid.UUID) (*pricing.SubcategoryConfig, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, apierror.KindOf(err))
}

// ── Parsing ──────────────────────────────────────────────────────────────────

func TestParseHelpers(t *testing.T) {
	r, ok := pricing.ParseRenown("premium")
	assert.True(t, ok)
	assert.Equal(t, pricing.RenownPremium, r)

	s, ok := pricing.ParseStatus("  Usado   como nuevo ")
	assert.True(t, ok)
	assert.Equal(t, pricing.StatusUsadoComoNuevo, s)
	assert.True(t, s.IsNew())
	assert.False(t, pricing.StatusUsado.IsNew())

	m, ok := pricing.ParseModality("consignacion")
	assert.True(t, ok)
	assert.Equal(t, pricing.ModalityConsignacion, m)

	m, ok = pricing.ParseModality("")
	assert.True(t, ok)
	assert.Equal(t, pricing.ModalityCompraDirecta, m)

	_, ok = pricing.ParseCondition("malo")
	assert.False(t, ok)
}
