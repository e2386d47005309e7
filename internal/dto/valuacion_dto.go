package dto

import "github.com/shopspring/decimal"

// ── Request DTOs ──────────────────────────────────────────────────────────────

// CalcularValuacionRequest describes one item to price. Enum values are checked by
// the pricing engine so that the client gets a message naming the bad value.
type CalcularValuacionRequest struct {
	SubcategoryID  string          `json:"subcategory_id"  validate:"required,uuid"`
	BrandRenown    string          `json:"brand_renown"    validate:"required"`
	ConditionState string          `json:"condition_state" validate:"required"`
	Demand         string          `json:"demand"          validate:"required"`
	Cleanliness    string          `json:"cleanliness"     validate:"required"`
	Status         string          `json:"status"          validate:"required"`
	Modality       string          `json:"modality"`
	NewPrice       decimal.Decimal `json:"new_price"       validate:"required"`
	// Features is an opaque string|number bag forwarded untouched; other value
	// types are rejected.
	Features map[string]any `json:"features"`
}

type CalcularLoteRequest struct {
	Items []CalcularValuacionRequest `json:"items" validate:"required,min=1,max=200,dive"`
}

type CrearValuacionRequest struct {
	ClientID string  `json:"client_id" validate:"required,uuid"`
	Notes    *string `json:"notes"`
}

type AgregarItemRequest struct {
	CalcularValuacionRequest
	Quantity int      `json:"quantity" validate:"omitempty,min=1"`
	Images   []string `json:"images"   validate:"omitempty,max=10,dive,url"`
	Notes    *string  `json:"notes"`
}

type PrecioFinalItem struct {
	ItemID             string           `json:"item_id"              validate:"required,uuid"`
	FinalPurchasePrice *decimal.Decimal `json:"final_purchase_price"`
	FinalSalePrice     *decimal.Decimal `json:"final_sale_price"`
}

type FinalizarValuacionRequest struct {
	Status string            `json:"status" validate:"required,oneof=completed cancelled"`
	Items  []PrecioFinalItem `json:"items"  validate:"omitempty,dive"`
	Notes  *string           `json:"notes"`
}

// ValuacionFilter is bound from the query string of GET /v1/valuaciones.
type ValuacionFilter struct {
	ClientID string `form:"client_id" validate:"omitempty,uuid"`
	Status   string `form:"status"    validate:"omitempty,oneof=pending completed cancelled"`
	Desde    string `form:"desde"` // YYYY-MM-DD
	Hasta    string `form:"hasta"` // YYYY-MM-DD
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ── Response DTOs ─────────────────────────────────────────────────────────────

type ValuacionResultadoResponse struct {
	PurchaseScore          int              `json:"purchase_score"`
	SaleScore              int              `json:"sale_score"`
	SuggestedPurchasePrice decimal.Decimal  `json:"suggested_purchase_price"`
	SuggestedSalePrice     decimal.Decimal  `json:"suggested_sale_price"`
	ConsignmentPrice       *decimal.Decimal `json:"consignment_price,omitempty"`
	StoreCreditPrice       decimal.Decimal  `json:"store_credit_price"`
	PolicyVersion          string           `json:"policy_version"`
}

type CalcularLoteResponse struct {
	Results []ValuacionResultadoResponse `json:"results"`
}

type ValuacionItemResponse struct {
	ID                 string           `json:"id"`
	SubcategoryID      string           `json:"subcategory_id"`
	BrandRenown        string           `json:"brand_renown"`
	ConditionState     string           `json:"condition_state"`
	Demand             string           `json:"demand"`
	Cleanliness        string           `json:"cleanliness"`
	Status             string           `json:"status"`
	Modality           string           `json:"modality"`
	Quantity           int              `json:"quantity"`
	NewPrice           decimal.Decimal  `json:"new_price"`
	Features           map[string]any   `json:"features,omitempty"`
	Images             []string         `json:"images,omitempty"`
	FinalPurchasePrice *decimal.Decimal `json:"final_purchase_price,omitempty"`
	FinalSalePrice     *decimal.Decimal `json:"final_sale_price,omitempty"`
	ValuacionResultadoResponse
}

type ValuacionResponse struct {
	ID                     string                  `json:"id"`
	ClientID               string                  `json:"client_id"`
	ClientName             string                  `json:"client_name,omitempty"`
	UserID                 string                  `json:"user_id"`
	Status                 string                  `json:"status"`
	TotalPurchaseAmount    *decimal.Decimal        `json:"total_purchase_amount,omitempty"`
	TotalConsignmentAmount *decimal.Decimal        `json:"total_consignment_amount,omitempty"`
	Notes                  *string                 `json:"notes,omitempty"`
	CreatedAt              string                  `json:"created_at"`
	FinishedAt             *string                 `json:"finished_at,omitempty"`
	Items                  []ValuacionItemResponse `json:"items"`
}

type ValuacionListResponse struct {
	Data  []ValuacionResponse `json:"data"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}
