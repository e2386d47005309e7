package pricing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

// Policy is the versioned set of numbers behind every quote. It is loaded once
// at startup and never mutated afterwards.
type Policy struct {
	Version         string
	Scores          ScoreTable
	PurchaseWeights Weights
	SaleWeights     Weights

	MinPurchasePrice     decimal.Decimal
	SaleAdjustmentBase   decimal.Decimal
	SaleAdjustmentSpan   decimal.Decimal
	ConsignmentRetention decimal.Decimal
	ConsignmentPremium   decimal.Decimal
	StoreCreditPremium   decimal.Decimal
	ClothingMargin       decimal.Decimal
}

// policyFile mirrors policy.yaml. Decimals are read as floats and converted with
// decimal.NewFromFloat, which keeps the shortest representation (0.4 stays 0.4).
type policyFile struct {
	Version string `yaml:"version"`
	Scores  struct {
		Condition   map[string]int `yaml:"condition"`
		Demand      map[string]int `yaml:"demand"`
		Cleanliness map[string]int `yaml:"cleanliness"`
		Brand       map[string]int `yaml:"brand"`
	} `yaml:"scores"`
	PurchaseWeights      Weights `yaml:"purchase_weights"`
	SaleWeights          Weights `yaml:"sale_weights"`
	MinPurchasePrice     float64 `yaml:"min_purchase_price"`
	SaleAdjustmentBase   float64 `yaml:"sale_adjustment_base"`
	SaleAdjustmentSpan   float64 `yaml:"sale_adjustment_span"`
	ConsignmentRetention float64 `yaml:"consignment_retention"`
	ConsignmentPremium   float64 `yaml:"consignment_premium"`
	StoreCreditPremium   float64 `yaml:"store_credit_premium"`
	ClothingMargin       float64 `yaml:"clothing_margin"`
}

// DefaultPolicy returns the policy embedded in the binary.
func DefaultPolicy() (*Policy, error) {
	return ParsePolicy(defaultPolicyYAML)
}

// LoadPolicy reads a policy file. An empty path falls back to the embedded one.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a YAML policy document.
func ParsePolicy(data []byte) (*Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pricing policy: %w", err)
	}

	p := &Policy{
		Version: f.Version,
		Scores: ScoreTable{
			Condition:   make(map[Condition]int, len(f.Scores.Condition)),
			Demand:      make(map[Demand]int, len(f.Scores.Demand)),
			Cleanliness: make(map[Cleanliness]int, len(f.Scores.Cleanliness)),
			Brand:       make(map[Renown]int, len(f.Scores.Brand)),
		},
		PurchaseWeights:      f.PurchaseWeights,
		SaleWeights:          f.SaleWeights,
		MinPurchasePrice:     decimal.NewFromFloat(f.MinPurchasePrice),
		SaleAdjustmentBase:   decimal.NewFromFloat(f.SaleAdjustmentBase),
		SaleAdjustmentSpan:   decimal.NewFromFloat(f.SaleAdjustmentSpan),
		ConsignmentRetention: decimal.NewFromFloat(f.ConsignmentRetention),
		ConsignmentPremium:   decimal.NewFromFloat(f.ConsignmentPremium),
		StoreCreditPremium:   decimal.NewFromFloat(f.StoreCreditPremium),
		ClothingMargin:       decimal.NewFromFloat(f.ClothingMargin),
	}
	for k, v := range f.Scores.Condition {
		p.Scores.Condition[Condition(k)] = v
	}
	for k, v := range f.Scores.Demand {
		p.Scores.Demand[Demand(k)] = v
	}
	for k, v := range f.Scores.Cleanliness {
		p.Scores.Cleanliness[Cleanliness(k)] = v
	}
	for k, v := range f.Scores.Brand {
		p.Scores.Brand[Renown(k)] = v
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing policy %q: %w", p.Version, err)
	}
	return p, nil
}

// Validate checks that every enum value has a score in range and that the
// multipliers keep the purchase ≤ sale < consignment ordering achievable.
func (p *Policy) Validate() error {
	if p.Version == "" {
		return errors.New("version is required")
	}
	for _, c := range allConditions {
		if err := checkScore("condition", string(c), p.Scores.Condition[c], hasKey(p.Scores.Condition, c)); err != nil {
			return err
		}
	}
	for _, d := range allDemands {
		if err := checkScore("demand", string(d), p.Scores.Demand[d], hasKey(p.Scores.Demand, d)); err != nil {
			return err
		}
	}
	for _, c := range allCleanliness {
		if err := checkScore("cleanliness", string(c), p.Scores.Cleanliness[c], hasKey(p.Scores.Cleanliness, c)); err != nil {
			return err
		}
	}
	for _, r := range allRenowns {
		if err := checkScore("brand", string(r), p.Scores.Brand[r], hasKey(p.Scores.Brand, r)); err != nil {
			return err
		}
	}
	if err := checkWeights("purchase_weights", p.PurchaseWeights); err != nil {
		return err
	}
	if err := checkWeights("sale_weights", p.SaleWeights); err != nil {
		return err
	}

	one := decimal.NewFromInt(1)
	switch {
	case !p.MinPurchasePrice.IsPositive():
		return errors.New("min_purchase_price must be positive")
	case !p.SaleAdjustmentBase.IsPositive():
		return errors.New("sale_adjustment_base must be positive")
	case p.SaleAdjustmentSpan.IsNegative():
		return errors.New("sale_adjustment_span must not be negative")
	case !p.ConsignmentRetention.IsPositive() || p.ConsignmentRetention.GreaterThan(one):
		return errors.New("consignment_retention must be in (0, 1]")
	case !p.ConsignmentPremium.GreaterThan(one):
		return errors.New("consignment_premium must be greater than 1")
	case p.StoreCreditPremium.LessThan(one):
		return errors.New("store_credit_premium must be at least 1")
	case p.ClothingMargin.LessThan(one):
		return errors.New("clothing_margin must be at least 1")
	}
	return nil
}

func hasKey[K comparable](m map[K]int, k K) bool {
	_, ok := m[k]
	return ok
}

func checkScore(table, key string, v int, present bool) error {
	if !present {
		return fmt.Errorf("scores.%s.%s is missing", table, key)
	}
	if v < 0 || v > MaxFactorScore {
		return fmt.Errorf("scores.%s.%s = %d, want 0..%d", table, key, v, MaxFactorScore)
	}
	return nil
}

func checkWeights(name string, w Weights) error {
	if w.Condition < 0 || w.Demand < 0 || w.Cleanliness < 0 || w.Brand < 0 {
		return fmt.Errorf("%s must not be negative", name)
	}
	if w.sum() != 10 {
		return fmt.Errorf("%s add up to %d, want 10", name, w.sum())
	}
	return nil
}
