package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entrepeques/internal/apierror"
	"entrepeques/internal/dto"
	"entrepeques/internal/infra"
	"entrepeques/internal/model"
	"entrepeques/internal/pricing"
	"entrepeques/internal/repository"
	"entrepeques/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ValuacionService interface {
	Calcular(ctx context.Context, req dto.CalcularValuacionRequest) (*dto.ValuacionResultadoResponse, error)
	// CalcularLote prices every item or none; results keep the request order.
	CalcularLote(ctx context.Context, req dto.CalcularLoteRequest) (*dto.CalcularLoteResponse, error)
	Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearValuacionRequest) (*dto.ValuacionResponse, error)
	AgregarItem(ctx context.Context, valuacionID uuid.UUID, req dto.AgregarItemRequest) (*dto.ValuacionItemResponse, error)
	Finalizar(ctx context.Context, id uuid.UUID, req dto.FinalizarValuacionRequest) (*dto.ValuacionResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.ValuacionResponse, error)
	Listar(ctx context.Context, filter dto.ValuacionFilter) (*dto.ValuacionListResponse, error)
	// GenerarOfertaPDF renders the offer document and returns its path on disk.
	GenerarOfertaPDF(ctx context.Context, id uuid.UUID) (string, error)
}

type valuacionService struct {
	repo     repository.ValuacionRepository
	subcats  repository.SubcategoriaRepository
	clientes repository.ClienteRepository
	calc     *pricing.Calculator
	notifier Notifier
	tienda   string
	pdfDir   string
	now      func() time.Time
}

func NewValuacionService(
	repo repository.ValuacionRepository,
	subcats repository.SubcategoriaRepository,
	clientes repository.ClienteRepository,
	calc *pricing.Calculator,
	notifier Notifier,
	tienda, pdfDir string,
) ValuacionService {
	return &valuacionService{
		repo:     repo,
		subcats:  subcats,
		clientes: clientes,
		calc:     calc,
		notifier: notifier,
		tienda:   tienda,
		pdfDir:   pdfDir,
		now:      time.Now,
	}
}

// ── Calcular ──────────────────────────────────────────────────────────────────

func (s *valuacionService) Calcular(ctx context.Context, req dto.CalcularValuacionRequest) (*dto.ValuacionResultadoResponse, error) {
	d, err := descriptorFrom(req)
	if err != nil {
		return nil, err
	}
	sub, err := s.subcats.FindByID(ctx, d.SubcategoryID)
	if err != nil {
		return nil, notFound(err, "Subcategoría no encontrada")
	}
	res, err := s.calc.Calculate(d, configFrom(sub))
	if err != nil {
		return nil, err
	}
	out := resultadoResponse(res)
	return &out, nil
}

func (s *valuacionService) CalcularLote(ctx context.Context, req dto.CalcularLoteRequest) (*dto.CalcularLoteResponse, error) {
	descs := make([]pricing.Descriptor, len(req.Items))
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for i, it := range req.Items {
		d, err := descriptorFrom(it)
		if err != nil {
			return nil, enPosicion(i, err)
		}
		descs[i] = d
		if !seen[d.SubcategoryID] {
			seen[d.SubcategoryID] = true
			ids = append(ids, d.SubcategoryID)
		}
	}

	subs, err := s.subcats.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.Subcategoria, len(subs))
	for i := range subs {
		byID[subs[i].ID] = &subs[i]
	}

	results, err := s.calc.CalculateBatch(descs, func(id uuid.UUID) (*pricing.SubcategoryConfig, error) {
		sub, ok := byID[id]
		if !ok {
			return nil, apierror.Newf(apierror.KindNotFound, "Subcategoría %s no encontrada", id)
		}
		return configFrom(sub), nil
	})
	if err != nil {
		return nil, err
	}

	out := &dto.CalcularLoteResponse{Results: make([]dto.ValuacionResultadoResponse, len(results))}
	for i, r := range results {
		out.Results[i] = resultadoResponse(r)
	}
	return out, nil
}

// ── Sesiones de valuación ─────────────────────────────────────────────────────

func (s *valuacionService) Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearValuacionRequest) (*dto.ValuacionResponse, error) {
	clienteID, err := parseID(req.ClientID, "client_id")
	if err != nil {
		return nil, err
	}
	cliente, err := s.clientes.FindByID(ctx, clienteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Newf(apierror.KindInvalidClient, "Cliente no encontrado")
		}
		return nil, err
	}

	v := &model.Valuacion{
		ClienteID: cliente.ID,
		UsuarioID: usuarioID,
		Estado:    model.ValuacionPendiente,
		Notas:     req.Notes,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	v.Cliente = cliente
	out := valuacionResponse(v)
	return &out, nil
}

func (s *valuacionService) AgregarItem(ctx context.Context, valuacionID uuid.UUID, req dto.AgregarItemRequest) (*dto.ValuacionItemResponse, error) {
	v, err := s.repo.FindByID(ctx, valuacionID)
	if err != nil {
		return nil, notFound(err, "Valuación no encontrada")
	}
	if v.Estado != model.ValuacionPendiente {
		return nil, apierror.Newf(apierror.KindInvalidTransition, "La valuación ya fue cerrada")
	}

	d, err := descriptorFrom(req.CalcularValuacionRequest)
	if err != nil {
		return nil, err
	}
	sub, err := s.subcats.FindByID(ctx, d.SubcategoryID)
	if err != nil {
		return nil, notFound(err, "Subcategoría no encontrada")
	}
	res, err := s.calc.Calculate(d, configFrom(sub))
	if err != nil {
		return nil, err
	}

	cantidad := req.Quantity
	if cantidad <= 0 {
		cantidad = 1
	}
	item := &model.ValuacionItem{
		ValuacionID:          v.ID,
		SubcategoriaID:       d.SubcategoryID,
		Renombre:             string(d.Renown),
		Condicion:            string(d.Condition),
		Demanda:              string(d.Demand),
		Limpieza:             string(d.Cleanliness),
		Estado:               string(d.Status),
		Modalidad:            string(d.Modality),
		Cantidad:             cantidad,
		Notas:                req.Notes,
		PrecioNuevo:          d.NewPrice,
		PuntajeCompra:        res.PurchaseScore,
		PuntajeVenta:         res.SaleScore,
		PrecioCompraSugerido: res.SuggestedPurchasePrice,
		PrecioVentaSugerido:  res.SuggestedSalePrice,
		PrecioConsignacion:   res.ConsignmentPrice,
		PrecioCreditoTienda:  res.StoreCreditPrice,
		VersionPolitica:      res.PolicyVersion,
	}
	if len(req.Features) > 0 {
		item.Caracteristicas = datatypes.JSONMap(req.Features)
	}
	if len(req.Images) > 0 {
		raw, err := json.Marshal(req.Images)
		if err != nil {
			return nil, err
		}
		item.Imagenes = datatypes.JSON(raw)
	}
	if err := s.repo.AddItem(ctx, item); err != nil {
		return nil, err
	}
	out := itemResponse(item)
	return &out, nil
}

// ── Finalizar ─────────────────────────────────────────────────────────────────
// Totals: direct-purchase items add their (final or suggested) purchase price,
// consignment items their consignment price, both times quantity.

func (s *valuacionService) Finalizar(ctx context.Context, id uuid.UUID, req dto.FinalizarValuacionRequest) (*dto.ValuacionResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Valuación no encontrada")
	}
	if v.Estado != model.ValuacionPendiente {
		return nil, apierror.Newf(apierror.KindInvalidTransition, "La valuación ya fue cerrada")
	}

	byID := make(map[uuid.UUID]int, len(v.Items))
	for i, it := range v.Items {
		byID[it.ID] = i
	}
	for _, fp := range req.Items {
		itemID, err := parseID(fp.ItemID, "item_id")
		if err != nil {
			return nil, err
		}
		i, ok := byID[itemID]
		if !ok {
			return nil, apierror.Newf(apierror.KindInvalidInput, "El artículo %s no pertenece a la valuación", itemID)
		}
		if negativo(fp.FinalPurchasePrice) || negativo(fp.FinalSalePrice) {
			return nil, apierror.Newf(apierror.KindInvalidInput, "Los precios finales no pueden ser negativos")
		}
		v.Items[i].PrecioFinalCompra = redondear(fp.FinalPurchasePrice)
		v.Items[i].PrecioFinalVenta = redondear(fp.FinalSalePrice)
	}

	if req.Status == model.ValuacionCompletada {
		compra, consig := totales(v.Items)
		v.TotalCompra, v.TotalConsignacion = &compra, &consig
	}
	now := s.now()
	v.Estado = req.Status
	v.FinalizadaEn = &now
	if req.Notes != nil {
		v.Notas = req.Notes
	}

	ok, err := s.repo.Finalizar(ctx, v, v.Items)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.Newf(apierror.KindInvalidTransition, "La valuación ya fue cerrada")
	}

	if v.Estado == model.ValuacionCompletada {
		s.enviarOferta(ctx, v)
	}
	out := valuacionResponse(v)
	return &out, nil
}

func totales(items []model.ValuacionItem) (compra, consignacion decimal.Decimal) {
	for _, it := range items {
		qty := decimal.NewFromInt(int64(it.Cantidad))
		if it.Modalidad == string(pricing.ModalityConsignacion) {
			if it.PrecioConsignacion != nil {
				consignacion = consignacion.Add(it.PrecioConsignacion.Mul(qty))
			}
			continue
		}
		precio := it.PrecioCompraSugerido
		if it.PrecioFinalCompra != nil {
			precio = *it.PrecioFinalCompra
		}
		compra = compra.Add(precio.Mul(qty))
	}
	return compra.Round(2), consignacion.Round(2)
}

func negativo(d *decimal.Decimal) bool { return d != nil && d.IsNegative() }

func redondear(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(2)
	return &r
}

// enviarOferta emails the offer PDF to the client, when the client has an email.
func (s *valuacionService) enviarOferta(ctx context.Context, v *model.Valuacion) {
	if s.notifier == nil || v.Cliente == nil || v.Cliente.Email == nil || *v.Cliente.Email == "" {
		return
	}
	path, err := s.renderPDF(ctx, v)
	if err != nil {
		log.Warn().Err(err).Str("valuacion_id", v.ID.String()).Msg("offer pdf failed, email not sent")
		return
	}
	encolar(ctx, s.notifier, []worker.EmailJobPayload{{
		ToEmail:    *v.Cliente.Email,
		Subject:    fmt.Sprintf("Tu oferta de %s", s.tienda),
		Body:       fmt.Sprintf("Hola %s,\n\nAdjuntamos la oferta por los artículos que trajiste a %s.\n", v.Cliente.Nombre, s.tienda),
		Attachment: path,
	}})
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *valuacionService) Obtener(ctx context.Context, id uuid.UUID) (*dto.ValuacionResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Valuación no encontrada")
	}
	out := valuacionResponse(v)
	return &out, nil
}

func (s *valuacionService) Listar(ctx context.Context, filter dto.ValuacionFilter) (*dto.ValuacionListResponse, error) {
	for _, f := range []string{filter.Desde, filter.Hasta} {
		if f == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", f); err != nil {
			return nil, apierror.Newf(apierror.KindInvalidDateFormat, "Fecha no válida: %q (formato AAAA-MM-DD)", f)
		}
	}
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := &dto.ValuacionListResponse{
		Data:  make([]dto.ValuacionResponse, len(list)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range list {
		out.Data[i] = valuacionResponse(&list[i])
	}
	return out, nil
}

func (s *valuacionService) GenerarOfertaPDF(ctx context.Context, id uuid.UUID) (string, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", notFound(err, "Valuación no encontrada")
	}
	if len(v.Items) == 0 {
		return "", apierror.Newf(apierror.KindInvalidInput, "La valuación no tiene artículos")
	}
	return s.renderPDF(ctx, v)
}

func (s *valuacionService) renderPDF(ctx context.Context, v *model.Valuacion) (string, error) {
	ids := make([]uuid.UUID, 0, len(v.Items))
	for _, it := range v.Items {
		ids = append(ids, it.SubcategoriaID)
	}
	subs, err := s.subcats.FindByIDs(ctx, ids)
	if err != nil {
		return "", err
	}
	nombres := make(map[uuid.UUID]string, len(subs))
	for _, sub := range subs {
		nombres[sub.ID] = sub.Nombre
	}

	lineas := make([]infra.OfertaLinea, len(v.Items))
	for i, it := range v.Items {
		compra := it.PrecioCompraSugerido
		if it.PrecioFinalCompra != nil {
			compra = *it.PrecioFinalCompra
		}
		desc := nombres[it.SubcategoriaID]
		if it.Notas != nil && *it.Notas != "" {
			desc += " - " + *it.Notas
		}
		lineas[i] = infra.OfertaLinea{
			Descripcion:   desc,
			Modalidad:     it.Modalidad,
			Cantidad:      it.Cantidad,
			PrecioCompra:  compra,
			PrecioConsig:  it.PrecioConsignacion,
			CreditoTienda: it.PrecioCreditoTienda,
		}
	}
	return infra.GenerateOfertaPDF(v, lineas, s.tienda, s.pdfDir)
}

// ── Mapping ───────────────────────────────────────────────────────────────────

// descriptorFrom validates the enum fields and builds the engine input.
func descriptorFrom(req dto.CalcularValuacionRequest) (pricing.Descriptor, error) {
	var d pricing.Descriptor
	id, err := parseID(req.SubcategoryID, "subcategory_id")
	if err != nil {
		return d, err
	}
	var ok bool
	if d.Renown, ok = pricing.ParseRenown(req.BrandRenown); !ok {
		return d, apierror.Newf(apierror.KindInvalidInput, "Renombre de marca no válido: %q", req.BrandRenown)
	}
	if d.Condition, ok = pricing.ParseCondition(req.ConditionState); !ok {
		return d, apierror.Newf(apierror.KindInvalidInput, "Estado de conservación no válido: %q", req.ConditionState)
	}
	if d.Demand, ok = pricing.ParseDemand(req.Demand); !ok {
		return d, apierror.Newf(apierror.KindInvalidInput, "Demanda no válida: %q", req.Demand)
	}
	if d.Cleanliness, ok = pricing.ParseCleanliness(req.Cleanliness); !ok {
		return d, apierror.Newf(apierror.KindInvalidInput, "Limpieza no válida: %q", req.Cleanliness)
	}
	if d.Status, ok = pricing.ParseStatus(req.Status); !ok {
		return d, apierror.Newf(apierror.KindInvalidInput, "Estado del artículo no válido: %q", req.Status)
	}
	if d.Modality, ok = pricing.ParseModality(req.Modality); !ok {
		return d, apierror.Newf(apierror.KindInvalidInput, "Modalidad no válida: %q", req.Modality)
	}
	if err := validarCaracteristicas(req.Features); err != nil {
		return d, err
	}
	d.SubcategoryID = id
	d.NewPrice = req.NewPrice
	d.Features = req.Features
	return d, nil
}

// validarCaracteristicas accepts only flat string or number values. JSON
// bodies decode numbers as float64; the integer cases serve in-process callers.
func validarCaracteristicas(f map[string]any) error {
	for k, v := range f {
		switch v.(type) {
		case string, float64, float32, int, int32, int64, json.Number:
		default:
			return apierror.Newf(apierror.KindInvalidInput,
				"La característica %q debe ser texto o número", k)
		}
	}
	return nil
}

// configFrom returns nil when the subcategory has no complete pricing config.
func configFrom(sub *model.Subcategoria) *pricing.SubcategoryConfig {
	if sub == nil || !sub.TienePrecios() {
		return nil
	}
	return &pricing.SubcategoryConfig{
		GapNew:     *sub.GapNuevo,
		GapUsed:    *sub.GapUsado,
		MarginNew:  *sub.MargenNuevo,
		MarginUsed: *sub.MargenUsado,
	}
}

// enPosicion prefixes a domain error's message with the 1-based item position,
// the same way the pricing batch reports engine failures.
func enPosicion(i int, err error) error {
	var e *apierror.Error
	if !errors.As(err, &e) {
		return err
	}
	return apierror.Wrap(e.Kind, err, fmt.Sprintf("Artículo %d: %s", i+1, e.Message))
}

func resultadoResponse(r pricing.Result) dto.ValuacionResultadoResponse {
	return dto.ValuacionResultadoResponse{
		PurchaseScore:          r.PurchaseScore,
		SaleScore:              r.SaleScore,
		SuggestedPurchasePrice: r.SuggestedPurchasePrice,
		SuggestedSalePrice:     r.SuggestedSalePrice,
		ConsignmentPrice:       r.ConsignmentPrice,
		StoreCreditPrice:       r.StoreCreditPrice,
		PolicyVersion:          r.PolicyVersion,
	}
}

func itemResponse(it *model.ValuacionItem) dto.ValuacionItemResponse {
	out := dto.ValuacionItemResponse{
		ID:                 it.ID.String(),
		SubcategoryID:      it.SubcategoriaID.String(),
		BrandRenown:        it.Renombre,
		ConditionState:     it.Condicion,
		Demand:             it.Demanda,
		Cleanliness:        it.Limpieza,
		Status:             it.Estado,
		Modality:           it.Modalidad,
		Quantity:           it.Cantidad,
		NewPrice:           it.PrecioNuevo,
		Features:           map[string]any(it.Caracteristicas),
		FinalPurchasePrice: it.PrecioFinalCompra,
		FinalSalePrice:     it.PrecioFinalVenta,
		ValuacionResultadoResponse: dto.ValuacionResultadoResponse{
			PurchaseScore:          it.PuntajeCompra,
			SaleScore:              it.PuntajeVenta,
			SuggestedPurchasePrice: it.PrecioCompraSugerido,
			SuggestedSalePrice:     it.PrecioVentaSugerido,
			ConsignmentPrice:       it.PrecioConsignacion,
			StoreCreditPrice:       it.PrecioCreditoTienda,
			PolicyVersion:          it.VersionPolitica,
		},
	}
	if len(it.Imagenes) > 0 {
		_ = json.Unmarshal(it.Imagenes, &out.Images)
	}
	return out
}

func valuacionResponse(v *model.Valuacion) dto.ValuacionResponse {
	out := dto.ValuacionResponse{
		ID:                     v.ID.String(),
		ClientID:               v.ClienteID.String(),
		UserID:                 v.UsuarioID.String(),
		Status:                 v.Estado,
		TotalPurchaseAmount:    v.TotalCompra,
		TotalConsignmentAmount: v.TotalConsignacion,
		Notes:                  v.Notas,
		CreatedAt:              formatTime(v.CreatedAt),
		FinishedAt:             formatTimePtr(v.FinalizadaEn),
		Items:                  make([]dto.ValuacionItemResponse, len(v.Items)),
	}
	if v.Cliente != nil {
		out.ClientName = v.Cliente.Nombre
	}
	for i := range v.Items {
		out.Items[i] = itemResponse(&v.Items[i])
	}
	return out
}
