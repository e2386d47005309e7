package dto

// ── Request DTOs ──────────────────────────────────────────────────────────────

type CitaItemRequest struct {
	SubcategoryID      string `json:"subcategory_id"       validate:"required,uuid"`
	Description        string `json:"description"          validate:"max=500"`
	Quantity           int    `json:"quantity"             validate:"omitempty,min=1,max=1000"`
	IsExcellentQuality bool   `json:"is_excellent_quality"`
}

// CrearCitaRequest is the public booking contract. Items and client presence are
// checked by the booking service, which reports them with their own error kinds.
type CrearCitaRequest struct {
	AppointmentDate string            `json:"appointment_date" validate:"required"`
	StartTime       string            `json:"start_time"       validate:"required"`
	Items           []CitaItemRequest `json:"items"            validate:"dive"`
	ClientID        string            `json:"client_id"        validate:"omitempty,uuid"`
	ClientName      string            `json:"client_name"      validate:"max=120"`
	ClientPhone     string            `json:"client_phone"     validate:"max=20"`
	ClientEmail     string            `json:"client_email"     validate:"omitempty,email"`
}

type CancelarCitaRequest struct {
	Reason string `json:"reason"`
}

type ActualizarEstadoCitaRequest struct {
	Status string  `json:"status" validate:"required,oneof=completed no_show"`
	Notes  *string `json:"notes"`
}

type NotaCitasRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

// CitaFilter is bound from the query string of GET /v1/citas/admin.
type CitaFilter struct {
	Desde  string `form:"desde"` // YYYY-MM-DD, inclusive
	Hasta  string `form:"hasta"` // YYYY-MM-DD, inclusive
	Status string `form:"status" validate:"omitempty,oneof=scheduled completed cancelled no_show"`
	Search string `form:"search" validate:"max=100"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ── Response DTOs ─────────────────────────────────────────────────────────────

type SlotResponse struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Capacity    int    `json:"capacity"`
	Booked      int    `json:"booked"`
	IsAvailable bool   `json:"is_available"`
}

type HorariosResponse struct {
	Date  string         `json:"date"`
	Open  bool           `json:"open"`
	Slots []SlotResponse `json:"slots"`
}

type FechasDisponiblesResponse struct {
	WeeksAhead int      `json:"weeks_ahead"`
	Dates      []string `json:"dates"`
}

type SubcategoriaReservaResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	CategoryID        string `json:"category_id"`
	CategoryName      string `json:"category_name"`
	IsClothing        bool   `json:"is_clothing"`
	PurchasingEnabled bool   `json:"purchasing_enabled"`
}

// ClienteBusquedaResponse intentionally exposes only id and name.
type ClienteBusquedaResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CitaItemResponse struct {
	SubcategoryID      string `json:"subcategory_id"`
	SubcategoryName    string `json:"subcategory_name,omitempty"`
	Description        string `json:"description"`
	Quantity           int    `json:"quantity"`
	IsExcellentQuality bool   `json:"is_excellent_quality"`
}

type CitaResponse struct {
	ID                 string             `json:"id"`
	ClientID           string             `json:"client_id"`
	ClientName         string             `json:"client_name"`
	ClientPhone        string             `json:"client_phone"`
	ClientEmail        *string            `json:"client_email,omitempty"`
	AppointmentDate    string             `json:"appointment_date"`
	StartTime          string             `json:"start_time"`
	EndTime            string             `json:"end_time"`
	Status             string             `json:"status"`
	Notes              *string            `json:"notes,omitempty"`
	CancellationReason *string            `json:"cancellation_reason,omitempty"`
	CancelledAt        *string            `json:"cancelled_at,omitempty"`
	CreatedAt          string             `json:"created_at"`
	Items              []CitaItemResponse `json:"items"`
}

type CitaListResponse struct {
	Data  []CitaResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type CitaStatsResponse struct {
	Total     int64 `json:"total"`
	Scheduled int64 `json:"scheduled"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	NoShow    int64 `json:"no_show"`
	Today     int64 `json:"today"`
	ThisWeek  int64 `json:"this_week"`
}

type NotaCitasResponse struct {
	Note      string  `json:"note"`
	UpdatedAt *string `json:"updated_at,omitempty"`
}
