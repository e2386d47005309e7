package pricing

import (
	"strings"

	"entrepeques/internal/apierror"
)

// MaxFactorScore is the upper bound of every factor score in the ScoreTable.
const MaxFactorScore = 10

// Renown is a brand's perceived market desirability tier.
type Renown string

const (
	RenownSencilla Renown = "Sencilla"
	RenownNormal   Renown = "Normal"
	RenownAlta     Renown = "Alta"
	RenownPremium  Renown = "Premium"
)

// Condition is the physical state of the item.
type Condition string

const (
	ConditionExcelente Condition = "excelente"
	ConditionBueno     Condition = "bueno"
	ConditionRegular   Condition = "regular"
)

// Demand is how fast items of this kind sell.
type Demand string

const (
	DemandAlta  Demand = "alta"
	DemandMedia Demand = "media"
	DemandBaja  Demand = "baja"
)

// Cleanliness of the item as received.
type Cleanliness string

const (
	CleanlinessBuena   Cleanliness = "buena"
	CleanlinessRegular Cleanliness = "regular"
	CleanlinessMala    Cleanliness = "mala"
)

var (
	allRenowns     = []Renown{RenownSencilla, RenownNormal, RenownAlta, RenownPremium}
	allConditions  = []Condition{ConditionExcelente, ConditionBueno, ConditionRegular}
	allDemands     = []Demand{DemandAlta, DemandMedia, DemandBaja}
	allCleanliness = []Cleanliness{CleanlinessBuena, CleanlinessRegular, CleanlinessMala}
)

// ParseRenown accepts the tier case-insensitively ("premium" → Premium).
func ParseRenown(s string) (Renown, bool) {
	for _, r := range allRenowns {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, true
		}
	}
	return "", false
}

func ParseCondition(s string) (Condition, bool) {
	c := Condition(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range allConditions {
		if c == v {
			return c, true
		}
	}
	return "", false
}

func ParseDemand(s string) (Demand, bool) {
	d := Demand(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range allDemands {
		if d == v {
			return d, true
		}
	}
	return "", false
}

func ParseCleanliness(s string) (Cleanliness, bool) {
	c := Cleanliness(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range allCleanliness {
		if c == v {
			return c, true
		}
	}
	return "", false
}

// ScoreTable maps every factor value to its 0..MaxFactorScore score.
type ScoreTable struct {
	Condition   map[Condition]int
	Demand      map[Demand]int
	Cleanliness map[Cleanliness]int
	Brand       map[Renown]int
}

// FactorScores holds the four looked-up scores for a single item.
type FactorScores struct {
	Condition   int
	Demand      int
	Cleanliness int
	Brand       int
}

// Lookup resolves the four factor scores. Unknown values fail with InvalidInput.
func (t ScoreTable) Lookup(c Condition, d Demand, cl Cleanliness, r Renown) (FactorScores, error) {
	var fs FactorScores
	var ok bool
	if fs.Condition, ok = t.Condition[c]; !ok {
		return fs, apierror.Newf(apierror.KindInvalidInput, "Estado de conservación no válido: %q", c)
	}
	if fs.Demand, ok = t.Demand[d]; !ok {
		return fs, apierror.Newf(apierror.KindInvalidInput, "Demanda no válida: %q", d)
	}
	if fs.Cleanliness, ok = t.Cleanliness[cl]; !ok {
		return fs, apierror.Newf(apierror.KindInvalidInput, "Limpieza no válida: %q", cl)
	}
	if fs.Brand, ok = t.Brand[r]; !ok {
		return fs, apierror.Newf(apierror.KindInvalidInput, "Renombre de marca no válido: %q", r)
	}
	return fs, nil
}

// Weights combine factor scores into a 0-100 score. They must add up to 10.
type Weights struct {
	Condition   int `yaml:"condition"`
	Demand      int `yaml:"demand"`
	Cleanliness int `yaml:"cleanliness"`
	Brand       int `yaml:"brand"`
}

func (w Weights) sum() int { return w.Condition + w.Demand + w.Cleanliness + w.Brand }

// Score applies the weights to fs.
func (w Weights) Score(fs FactorScores) int {
	return w.Condition*fs.Condition + w.Demand*fs.Demand + w.Cleanliness*fs.Cleanliness + w.Brand*fs.Brand
}
