// Package pricing turns an item's category, brand renown, condition, demand and
// cleanliness into purchase, resale and consignment prices.
//
// Everything here is pure: a Calculator holds an immutable Policy and is safe
// for concurrent use.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"entrepeques/internal/apierror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the item's new/used state as declared by the valuator.
type Status string

const (
	StatusNuevo          Status = "nuevo"
	StatusUsadoComoNuevo Status = "usado como nuevo"
	StatusUsado          Status = "usado"
)

// ParseStatus normalizes case and spacing.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.Join(strings.Fields(strings.ToLower(s)), " "))
	switch st {
	case StatusNuevo, StatusUsadoComoNuevo, StatusUsado:
		return st, true
	}
	return "", false
}

// IsNew reports whether the new-item gap/margin pair applies: any status that
// mentions "nuevo", so "usado como nuevo" is priced as new.
func (s Status) IsNew() bool { return s == StatusNuevo || s == StatusUsadoComoNuevo }

// Modality is whether the store buys the item outright or holds it on consignment.
type Modality string

const (
	ModalityCompraDirecta Modality = "compra directa"
	ModalityConsignacion  Modality = "consignación"
)

// ParseModality defaults to direct purchase and accepts "consignacion" without accent.
func ParseModality(s string) (Modality, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compra directa", "compra":
		return ModalityCompraDirecta, true
	case "consignación", "consignacion":
		return ModalityConsignacion, true
	}
	return "", false
}

// Features is the free-form attribute bag attached to an item. Values are
// strings or numbers; the engine forwards it untouched.
type Features map[string]any

// Descriptor is the immutable input of a single calculation.
type Descriptor struct {
	SubcategoryID uuid.UUID
	Renown        Renown
	Condition     Condition
	Demand        Demand
	Cleanliness   Cleanliness
	Status        Status
	Modality      Modality
	NewPrice      decimal.Decimal
	Features      Features
}

// SubcategoryConfig carries the per-subcategory gap and margin multipliers.
type SubcategoryConfig struct {
	GapNew     decimal.Decimal
	GapUsed    decimal.Decimal
	MarginNew  decimal.Decimal
	MarginUsed decimal.Decimal
}

func (c SubcategoryConfig) pair(isNew bool) (gap, margin decimal.Decimal) {
	if isNew {
		return c.GapNew, c.MarginNew
	}
	return c.GapUsed, c.MarginUsed
}

// Result is a price quote. ConsignmentPrice is nil unless the modality is consignment.
type Result struct {
	PurchaseScore          int
	SaleScore              int
	SuggestedPurchasePrice decimal.Decimal
	SuggestedSalePrice     decimal.Decimal
	ConsignmentPrice       *decimal.Decimal
	StoreCreditPrice       decimal.Decimal
	PolicyVersion          string
}

// ConfigLookup resolves the pricing config of a subcategory. A nil config with
// a nil error means the subcategory has none.
type ConfigLookup func(subcategoryID uuid.UUID) (*SubcategoryConfig, error)

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
)

// Calculator computes quotes under a fixed Policy.
type Calculator struct {
	policy *Policy
}

func NewCalculator(p *Policy) *Calculator {
	return &Calculator{policy: p}
}

// Policy exposes the policy in use (read-only by convention).
func (c *Calculator) Policy() *Policy { return c.policy }

// Calculate prices a single item.
func (c *Calculator) Calculate(d Descriptor, cfg *SubcategoryConfig) (Result, error) {
	if cfg == nil {
		return Result{}, apierror.Newf(apierror.KindMissingConfig,
			"La subcategoría %s no tiene configuración de precios", d.SubcategoryID)
	}
	if !d.NewPrice.IsPositive() {
		return Result{}, apierror.Newf(apierror.KindInvalidInput, "El precio nuevo debe ser mayor a cero")
	}
	status, ok := ParseStatus(string(d.Status))
	if !ok {
		return Result{}, apierror.Newf(apierror.KindInvalidInput, "Estado del artículo no válido: %q", d.Status)
	}
	d.Status = status
	if d.Modality != ModalityCompraDirecta && d.Modality != ModalityConsignacion && d.Modality != "" {
		return Result{}, apierror.Newf(apierror.KindInvalidInput, "Modalidad no válida: %q", d.Modality)
	}

	fs, err := c.policy.Scores.Lookup(d.Condition, d.Demand, d.Cleanliness, d.Renown)
	if err != nil {
		return Result{}, err
	}
	purchaseScore := c.policy.PurchaseWeights.Score(fs)
	saleScore := c.policy.SaleWeights.Score(fs)

	gap, margin := cfg.pair(d.Status.IsNew())
	if gap.IsNegative() || margin.IsNegative() {
		return Result{}, apierror.Newf(apierror.KindMissingConfig,
			"La configuración de precios de la subcategoría %s es inválida", d.SubcategoryID)
	}

	purchase := d.NewPrice.Mul(gap).Mul(decimal.NewFromInt(int64(purchaseScore))).Div(hundred)
	purchase = c.floorPurchase(roundMoney(purchase))

	res := Result{
		PurchaseScore:          purchaseScore,
		SaleScore:              saleScore,
		SuggestedPurchasePrice: purchase,
		SuggestedSalePrice:     c.salePrice(purchase, margin, saleScore),
		StoreCreditPrice:       roundMoney(purchase.Mul(c.policy.StoreCreditPremium)),
		PolicyVersion:          c.policy.Version,
	}
	if d.Modality == ModalityConsignacion {
		cp := c.consignmentPrice(purchase, res.SuggestedSalePrice)
		res.ConsignmentPrice = &cp
	}
	return res, nil
}

// CalculateBatch prices items in order without persisting anything. The i-th
// result belongs to the i-th descriptor. The first failing item aborts the batch.
func (c *Calculator) CalculateBatch(items []Descriptor, lookup ConfigLookup) ([]Result, error) {
	results := make([]Result, len(items))
	for i, d := range items {
		cfg, err := lookup(d.SubcategoryID)
		if err != nil {
			return nil, itemError(i, err)
		}
		r, err := c.Calculate(d, cfg)
		if err != nil {
			return nil, itemError(i, err)
		}
		results[i] = r
	}
	return results, nil
}

// itemError prefixes a domain error's message with the 1-based item position.
// Infrastructure errors pass through unchanged.
func itemError(i int, err error) error {
	var e *apierror.Error
	if !errors.As(err, &e) {
		return err
	}
	return apierror.Wrap(e.Kind, err, fmt.Sprintf("Artículo %d: %s", i+1, e.Message))
}

// floorPurchase applies the minimum purchase price so that minimum scores or a
// zero gap never produce a zero quote.
func (c *Calculator) floorPurchase(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(c.policy.MinPurchasePrice) {
		return c.policy.MinPurchasePrice
	}
	return p
}

// salePrice = purchase × margin × (base + span × score/100), never below purchase.
func (c *Calculator) salePrice(purchase, margin decimal.Decimal, saleScore int) decimal.Decimal {
	adj := c.policy.SaleAdjustmentBase.Add(
		c.policy.SaleAdjustmentSpan.Mul(decimal.NewFromInt(int64(saleScore))).Div(hundred))
	sale := roundMoney(purchase.Mul(margin).Mul(adj))
	if sale.LessThan(purchase) {
		return purchase
	}
	return sale
}

// consignmentPrice pays the seller the retained share of the sale price, but
// never less than purchase × premium, and always strictly above purchase.
func (c *Calculator) consignmentPrice(purchase, sale decimal.Decimal) decimal.Decimal {
	cp := decimal.Max(sale.Mul(c.policy.ConsignmentRetention), purchase.Mul(c.policy.ConsignmentPremium))
	cp = roundMoney(cp)
	if !cp.GreaterThan(purchase) {
		cp = purchase.Add(cent)
	}
	return cp
}

// roundMoney rounds to cents, half away from zero (half-up for prices).
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
