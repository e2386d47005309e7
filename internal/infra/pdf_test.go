package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"entrepeques/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOfertaPDF(t *testing.T) {
	total := decimal.RequireFromString("430.00")
	consig := decimal.RequireFromString("240.00")
	v := &model.Valuacion{
		ID:                uuid.New(),
		Estado:            model.ValuacionCompletada,
		TotalCompra:       &total,
		TotalConsignacion: &consig,
		CreatedAt:         time.Date(2025, 3, 4, 11, 0, 0, 0, time.UTC),
		Cliente:           &model.Cliente{Nombre: "María Pérez"},
	}
	lineas := []OfertaLinea{
		{Descripcion: "Carriola plegable con capota y canasta inferior extra grande", Modalidad: "compra directa", Cantidad: 1,
			PrecioCompra: decimal.RequireFromString("200"), CreditoTienda: decimal.RequireFromString("220")},
		{Descripcion: "Silla de auto", Modalidad: "consignación", Cantidad: 1,
			PrecioCompra: decimal.RequireFromString("200"), PrecioConsig: &consig, CreditoTienda: decimal.RequireFromString("220")},
	}

	dir := filepath.Join(t.TempDir(), "ofertas")
	path, err := GenerateOfertaPDF(v, lineas, "Entrepeques", dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "oferta_"+v.ID.String()+".pdf"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(500))
}
