package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"entrepeques/internal/apierror"
	"entrepeques/internal/dto"
	"entrepeques/internal/model"
	"entrepeques/internal/pricing"
	"entrepeques/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type valuacionFixture struct {
	svc      *valuacionService
	repo     *fakeValuacionRepo
	notifier *fakeNotifier
	carriola *model.Subcategoria
	sinConf  *model.Subcategoria
	cliente  model.Cliente
}

func newValuacionFixture(t *testing.T) *valuacionFixture {
	t.Helper()
	policy, err := pricing.DefaultPolicy()
	require.NoError(t, err)

	email := "ana@example.com"
	f := &valuacionFixture{
		repo:     newFakeValuacionRepo(),
		notifier: &fakeNotifier{},
		carriola: &model.Subcategoria{
			ID: uuid.New(), Nombre: "Carriolas", Activo: true,
			GapNuevo: decPtr("0.6"), GapUsado: decPtr("0.4"),
			MargenNuevo: decPtr("1.3"), MargenUsado: decPtr("1.5"),
		},
		sinConf: &model.Subcategoria{ID: uuid.New(), Nombre: "Varios", Activo: true},
		cliente: model.Cliente{ID: uuid.New(), Nombre: "Ana", Telefono: "5512345678", Email: &email, Activo: true},
	}
	f.repo.clientes[f.cliente.ID] = &f.cliente

	svc := NewValuacionService(f.repo, newFakeSubcatRepo(f.carriola, f.sinConf),
		&fakeClienteRepo{clientes: []model.Cliente{f.cliente}},
		pricing.NewCalculator(policy), f.notifier, "Entrepeques", t.TempDir(),
	).(*valuacionService)
	svc.now = func() time.Time { return lunes }
	f.svc = svc
	return f
}

func (f *valuacionFixture) item(mutate ...func(*dto.CalcularValuacionRequest)) dto.CalcularValuacionRequest {
	req := dto.CalcularValuacionRequest{
		SubcategoryID:  f.carriola.ID.String(),
		BrandRenown:    "Normal",
		ConditionState: "bueno",
		Demand:         "media",
		Cleanliness:    "regular",
		Status:         "usado",
		NewPrice:       dec("1000"),
	}
	for _, m := range mutate {
		m(&req)
	}
	return req
}

// ── Calcular ──────────────────────────────────────────────────────────────────

func TestCalcular_ReferenceScenario(t *testing.T) {
	f := newValuacionFixture(t)

	out, err := f.svc.Calcular(context.Background(), f.item(func(r *dto.CalcularValuacionRequest) {
		r.Modality = "consignación"
	}))
	require.NoError(t, err)
	assert.Equal(t, 50, out.PurchaseScore)
	assert.Equal(t, 50, out.SaleScore)
	assert.True(t, dec("200").Equal(out.SuggestedPurchasePrice), out.SuggestedPurchasePrice.String())
	assert.True(t, dec("300").Equal(out.SuggestedSalePrice), out.SuggestedSalePrice.String())
	assert.True(t, dec("220").Equal(out.StoreCreditPrice), out.StoreCreditPrice.String())
	require.NotNil(t, out.ConsignmentPrice)
	assert.True(t, dec("240").Equal(*out.ConsignmentPrice), out.ConsignmentPrice.String())
	assert.Equal(t, "2025.1", out.PolicyVersion)
}

func TestCalcular_DirectPurchaseHasNoConsignment(t *testing.T) {
	f := newValuacionFixture(t)

	out, err := f.svc.Calcular(context.Background(), f.item())
	require.NoError(t, err)
	assert.Nil(t, out.ConsignmentPrice)
}

func TestCalcular_Errors(t *testing.T) {
	f := newValuacionFixture(t)
	cases := []struct {
		name   string
		mutate func(*dto.CalcularValuacionRequest)
		kind   apierror.Kind
	}{
		{"bad renown", func(r *dto.CalcularValuacionRequest) { r.BrandRenown = "Lujo" }, apierror.KindInvalidInput},
		{"bad status", func(r *dto.CalcularValuacionRequest) { r.Status = "roto" }, apierror.KindInvalidInput},
		{"bad modality", func(r *dto.CalcularValuacionRequest) { r.Modality = "renta" }, apierror.KindInvalidInput},
		{"zero price", func(r *dto.CalcularValuacionRequest) { r.NewPrice = decimal.Zero }, apierror.KindInvalidInput},
		{"unknown subcategory", func(r *dto.CalcularValuacionRequest) { r.SubcategoryID = uuid.NewString() }, apierror.KindNotFound},
		{"no pricing config", func(r *dto.CalcularValuacionRequest) { r.SubcategoryID = f.sinConf.ID.String() }, apierror.KindMissingConfig},
		{"nested feature", func(r *dto.CalcularValuacionRequest) {
			r.Features = map[string]any{"medidas": map[string]any{"alto": 90}}
		}, apierror.KindInvalidInput},
		{"list feature", func(r *dto.CalcularValuacionRequest) { r.Features = map[string]any{"colores": []any{"rojo"}} }, apierror.KindInvalidInput},
		{"bool feature", func(r *dto.CalcularValuacionRequest) { r.Features = map[string]any{"plegable": true} }, apierror.KindInvalidInput},
		{"null feature", func(r *dto.CalcularValuacionRequest) { r.Features = map[string]any{"color": nil} }, apierror.KindInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Calcular(context.Background(), f.item(tc.mutate))
			assertKind(t, err, tc.kind)
		})
	}
}

func TestCalcular_AcceptsFlatFeatures(t *testing.T) {
	f := newValuacionFixture(t)

	_, err := f.svc.Calcular(context.Background(), f.item(func(r *dto.CalcularValuacionRequest) {
		r.Features = map[string]any{"color": "azul", "ruedas": 4.0, "peso_kg": 7.5}
	}))
	assert.NoError(t, err)
}

func TestCalcularLote_KeepsOrder(t *testing.T) {
	f := newValuacionFixture(t)

	out, err := f.svc.CalcularLote(context.Background(), dto.CalcularLoteRequest{Items: []dto.CalcularValuacionRequest{
		f.item(),
		f.item(func(r *dto.CalcularValuacionRequest) { r.ConditionState = "excelente" }),
	}})
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	assert.Equal(t, 50, out.Results[0].PurchaseScore)
	assert.Greater(t, out.Results[1].PurchaseScore, out.Results[0].PurchaseScore)
}

func TestCalcularLote_AllOrNothing(t *testing.T) {
	f := newValuacionFixture(t)

	_, err := f.svc.CalcularLote(context.Background(), dto.CalcularLoteRequest{Items: []dto.CalcularValuacionRequest{
		f.item(),
		f.item(func(r *dto.CalcularValuacionRequest) { r.SubcategoryID = f.sinConf.ID.String() }),
	}})
	assertKind(t, err, apierror.KindMissingConfig)
	assert.Contains(t, err.Error(), "Artículo 2")

	_, err = f.svc.CalcularLote(context.Background(), dto.CalcularLoteRequest{Items: []dto.CalcularValuacionRequest{
		f.item(func(r *dto.CalcularValuacionRequest) { r.Demand = "nula" }),
	}})
	assertKind(t, err, apierror.KindInvalidInput)
	assert.Contains(t, err.Error(), "Artículo 1")
}

// ── Sesiones ──────────────────────────────────────────────────────────────────

func TestValuacion_Lifecycle(t *testing.T) {
	f := newValuacionFixture(t)
	ctx := context.Background()
	usuario := uuid.New()

	v, err := f.svc.Crear(ctx, usuario, dto.CrearValuacionRequest{ClientID: f.cliente.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, model.ValuacionPendiente, v.Status)
	assert.Equal(t, "Ana", v.ClientName)
	id := uuid.MustParse(v.ID)

	directo, err := f.svc.AgregarItem(ctx, id, dto.AgregarItemRequest{
		CalcularValuacionRequest: f.item(func(r *dto.CalcularValuacionRequest) {
			r.Features = map[string]any{"color": "rojo", "ruedas": 4}
		}),
		Quantity: 2,
		Images:   []string{"https://img.example.com/1.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, directo.Quantity)
	assert.Equal(t, "rojo", directo.Features["color"])
	assert.Equal(t, []string{"https://img.example.com/1.jpg"}, directo.Images)

	consig, err := f.svc.AgregarItem(ctx, id, dto.AgregarItemRequest{
		CalcularValuacionRequest: f.item(func(r *dto.CalcularValuacionRequest) { r.Modality = "consignacion" }),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, consig.Quantity)

	out, err := f.svc.Finalizar(ctx, id, dto.FinalizarValuacionRequest{
		Status: model.ValuacionCompletada,
		Items:  []dto.PrecioFinalItem{{ItemID: directo.ID, FinalPurchasePrice: decPtr("180.555")}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ValuacionCompletada, out.Status)
	require.NotNil(t, out.TotalPurchaseAmount)
	assert.True(t, dec("361.12").Equal(*out.TotalPurchaseAmount), out.TotalPurchaseAmount.String())
	require.NotNil(t, out.TotalConsignmentAmount)
	assert.True(t, dec("240").Equal(*out.TotalConsignmentAmount), out.TotalConsignmentAmount.String())
	assert.NotNil(t, out.FinishedAt)

	require.Len(t, f.notifier.payloads, 1)
	mail := f.notifier.payloads[0].(worker.EmailJobPayload)
	assert.Equal(t, "ana@example.com", mail.ToEmail)
	assert.FileExists(t, mail.Attachment)

	_, err = f.svc.AgregarItem(ctx, id, dto.AgregarItemRequest{CalcularValuacionRequest: f.item()})
	assertKind(t, err, apierror.KindInvalidTransition)
	_, err = f.svc.Finalizar(ctx, id, dto.FinalizarValuacionRequest{Status: model.ValuacionCancelada})
	assertKind(t, err, apierror.KindInvalidTransition)
}

func TestFinalizar_CancelledHasNoTotals(t *testing.T) {
	f := newValuacionFixture(t)
	ctx := context.Background()
	v, err := f.svc.Crear(ctx, uuid.New(), dto.CrearValuacionRequest{ClientID: f.cliente.ID.String()})
	require.NoError(t, err)

	out, err := f.svc.Finalizar(ctx, uuid.MustParse(v.ID), dto.FinalizarValuacionRequest{Status: model.ValuacionCancelada})
	require.NoError(t, err)
	assert.Nil(t, out.TotalPurchaseAmount)
	assert.Empty(t, f.notifier.payloads)
}

func TestFinalizar_RejectsForeignOrNegativePrices(t *testing.T) {
	f := newValuacionFixture(t)
	ctx := context.Background()
	v, err := f.svc.Crear(ctx, uuid.New(), dto.CrearValuacionRequest{ClientID: f.cliente.ID.String()})
	require.NoError(t, err)
	id := uuid.MustParse(v.ID)
	it, err := f.svc.AgregarItem(ctx, id, dto.AgregarItemRequest{CalcularValuacionRequest: f.item()})
	require.NoError(t, err)

	_, err = f.svc.Finalizar(ctx, id, dto.FinalizarValuacionRequest{
		Status: model.ValuacionCompletada,
		Items:  []dto.PrecioFinalItem{{ItemID: uuid.NewString(), FinalPurchasePrice: decPtr("10")}},
	})
	assertKind(t, err, apierror.KindInvalidInput)

	_, err = f.svc.Finalizar(ctx, id, dto.FinalizarValuacionRequest{
		Status: model.ValuacionCompletada,
		Items:  []dto.PrecioFinalItem{{ItemID: it.ID, FinalSalePrice: decPtr("-1")}},
	})
	assertKind(t, err, apierror.KindInvalidInput)

	got, err := f.svc.Obtener(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ValuacionPendiente, got.Status)
}

func TestCrear_UnknownClient(t *testing.T) {
	f := newValuacionFixture(t)

	_, err := f.svc.Crear(context.Background(), uuid.New(), dto.CrearValuacionRequest{ClientID: uuid.NewString()})
	assertKind(t, err, apierror.KindInvalidClient)
}

func TestGenerarOfertaPDF(t *testing.T) {
	f := newValuacionFixture(t)
	ctx := context.Background()
	v, err := f.svc.Crear(ctx, uuid.New(), dto.CrearValuacionRequest{ClientID: f.cliente.ID.String()})
	require.NoError(t, err)
	id := uuid.MustParse(v.ID)

	_, err = f.svc.GenerarOfertaPDF(ctx, id)
	assertKind(t, err, apierror.KindInvalidInput)

	_, err = f.svc.AgregarItem(ctx, id, dto.AgregarItemRequest{CalcularValuacionRequest: f.item()})
	require.NoError(t, err)
	path, err := f.svc.GenerarOfertaPDF(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "oferta_"+v.ID+".pdf", filepath.Base(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = f.svc.GenerarOfertaPDF(ctx, uuid.New())
	assertKind(t, err, apierror.KindNotFound)
}
