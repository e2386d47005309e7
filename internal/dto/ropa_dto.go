package dto

import "github.com/shopspring/decimal"

// ── Request DTOs ──────────────────────────────────────────────────────────────

// CalcularRopaRequest prices a garment. Either SubcategoryID or CategoryGroup
// identifies the price group; CategoryGroup wins when both are sent.
type CalcularRopaRequest struct {
	SubcategoryID  string `json:"subcategory_id"  validate:"omitempty,uuid"`
	CategoryGroup  string `json:"category_group"  validate:"omitempty,oneof=cuerpo_completo arriba_cintura abajo_cintura calzado dama_maternidad"`
	GarmentType    string `json:"garment_type"    validate:"required,max=60"`
	QualityLevel   string `json:"quality_level"   validate:"required,max=20"`
	ConditionState string `json:"condition_state" validate:"required"`
	Demand         string `json:"demand"          validate:"required"`
	Cleanliness    string `json:"cleanliness"     validate:"required"`
}

// ── Response DTOs ─────────────────────────────────────────────────────────────

type RopaResultadoResponse struct {
	CategoryGroup          string          `json:"category_group"`
	GarmentType            string          `json:"garment_type"`
	QualityLevel           string          `json:"quality_level"`
	SaleScore              int             `json:"sale_score"`
	SuggestedPurchasePrice decimal.Decimal `json:"suggested_purchase_price"`
	SuggestedSalePrice     decimal.Decimal `json:"suggested_sale_price"`
	ConsignmentPrice       decimal.Decimal `json:"consignment_price"`
	StoreCreditPrice       decimal.Decimal `json:"store_credit_price"`
	PolicyVersion          string          `json:"policy_version"`
}

type PrecioRopaResponse struct {
	ID            string          `json:"id"`
	CategoryGroup string          `json:"category_group"`
	GarmentType   string          `json:"garment_type"`
	QualityLevel  string          `json:"quality_level"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}
