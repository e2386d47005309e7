package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"entrepeques/internal/dto"
	"entrepeques/internal/model"
	"entrepeques/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Citas ─────────────────────────────────────────────────────────────────────

// fakeCitaRepo serializes ConTurnoBloqueado with one mutex, the in-memory
// stand-in for the advisory lock. Writes made through the tx view are applied
// only when fn succeeds.
type fakeCitaRepo struct {
	slot     sync.Mutex
	mu       sync.Mutex
	citas    map[uuid.UUID]*model.Cita
	clientes map[uuid.UUID]*model.Cliente
	lockErr  error
	inserted int
}

var _ repository.CitaRepository = (*fakeCitaRepo)(nil)

func newFakeCitaRepo() *fakeCitaRepo {
	return &fakeCitaRepo{citas: map[uuid.UUID]*model.Cita{}, clientes: map[uuid.UUID]*model.Cliente{}}
}

func (r *fakeCitaRepo) addCliente(c model.Cliente) *model.Cliente {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Activo = true
	r.clientes[c.ID] = &c
	return &c
}

func (r *fakeCitaRepo) ConTurnoBloqueado(ctx context.Context, _ time.Time, _ string, fn func(tx repository.CitaTx) error) error {
	if r.lockErr != nil {
		return r.lockErr
	}
	r.slot.Lock()
	defer r.slot.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &fakeCitaTx{r: r}
	if err := fn(tx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range tx.clientes {
		r.clientes[c.ID] = c
	}
	for _, c := range tx.citas {
		r.citas[c.ID] = c
		r.inserted++
	}
	return nil
}

func (r *fakeCitaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cita, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.citas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCitaRepo) HorasReservadas(_ context.Context, desde, hasta time.Time) (map[string][]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string][]string{}
	d0, d1 := desde.Format("2006-01-02"), hasta.Format("2006-01-02")
	for _, c := range r.citas {
		k := c.Fecha.Format("2006-01-02")
		if c.Estado != model.CitaCancelada && k >= d0 && k <= d1 {
			out[k] = append(out[k], c.HoraInicio)
		}
	}
	return out, nil
}

func (r *fakeCitaRepo) List(_ context.Context, f dto.CitaFilter) ([]model.Cita, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.Cita
	for _, c := range r.citas {
		if f.Status != "" && c.Estado != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.ClienteNombre), strings.ToLower(f.Search)) {
			continue
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].HoraInicio < all[j].HoraInicio })
	total := int64(len(all))
	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *fakeCitaRepo) Transicionar(_ context.Context, id uuid.UUID, cambios map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.citas[id]
	if !ok || c.Estado != model.CitaProgramada {
		return false, nil
	}
	for k, v := range cambios {
		switch k {
		case "estado":
			c.Estado = v.(string)
		case "notas":
			n := v.(string)
			c.Notas = &n
		case "motivo_cancelacion":
			m := v.(string)
			c.MotivoCancelacion = &m
		case "cancelada_por":
			c.CanceladaPor = v.(*uuid.UUID)
		case "cancelada_en":
			t := v.(time.Time)
			c.CanceladaEn = &t
		}
	}
	return true, nil
}

func (r *fakeCitaRepo) Stats(_ context.Context, hoy time.Time) (repository.CitaStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s repository.CitaStats
	dia := hoy.Format("2006-01-02")
	semana := hoy.AddDate(0, 0, 7).Format("2006-01-02")
	for _, c := range r.citas {
		s.Total++
		f := c.Fecha.Format("2006-01-02")
		switch c.Estado {
		case model.CitaProgramada:
			s.Programada++
			if f == dia {
				s.Hoy++
			}
			if f > dia && f <= semana {
				s.Semana++
			}
		case model.CitaCompletada:
			s.Completada++
		case model.CitaCancelada:
			s.Cancelada++
		case model.CitaNoAsistio:
			s.NoAsistio++
		}
	}
	return s, nil
}

type fakeCitaTx struct {
	r        *fakeCitaRepo
	citas    []*model.Cita
	clientes []*model.Cliente
}

func (t *fakeCitaTx) ContarActivas(_ context.Context, fecha time.Time, desde, hasta string) (int64, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	var n int64
	for _, c := range t.r.citas {
		if c.Fecha.Equal(fecha) && c.HoraInicio >= desde && c.HoraInicio < hasta && c.Estado != model.CitaCancelada {
			n++
		}
	}
	return n, nil
}

func (t *fakeCitaTx) ClientePorID(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	if c, ok := t.r.clientes[id]; ok && c.Activo {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (t *fakeCitaTx) ClientePorTelefono(_ context.Context, tel string) (*model.Cliente, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	for _, c := range t.r.clientes {
		if c.Telefono == tel && c.Activo {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (t *fakeCitaTx) CrearCliente(_ context.Context, c *model.Cliente) error {
	c.ID = uuid.New()
	t.clientes = append(t.clientes, c)
	return nil
}

func (t *fakeCitaTx) Crear(_ context.Context, c *model.Cita) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	for i := range c.Items {
		c.Items[i].ID = uuid.New()
		c.Items[i].CitaID = c.ID
	}
	t.citas = append(t.citas, c)
	return nil
}

// ── Subcategorías ─────────────────────────────────────────────────────────────

type fakeSubcatRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*model.Subcategoria
}

var _ repository.SubcategoriaRepository = (*fakeSubcatRepo)(nil)

func newFakeSubcatRepo(subs ...*model.Subcategoria) *fakeSubcatRepo {
	r := &fakeSubcatRepo{subs: map[uuid.UUID]*model.Subcategoria{}}
	for _, s := range subs {
		r.subs[s.ID] = s
	}
	return r
}

func (r *fakeSubcatRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Subcategoria, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubcatRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Subcategoria, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Subcategoria
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if s, ok := r.subs[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSubcatRepo) ListParaReserva(_ context.Context) ([]model.Subcategoria, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Subcategoria
	for _, s := range r.subs {
		if s.Activo {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

func (r *fakeSubcatRepo) ToggleCompras(_ context.Context, id uuid.UUID) (*model.Subcategoria, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	s.ComprasHabilitadas = !s.ComprasHabilitadas
	cp := *s
	return &cp, nil
}

// ── Clientes, ajustes ─────────────────────────────────────────────────────────

type fakeClienteRepo struct {
	clientes []model.Cliente
	lastArg  string
}

var _ repository.ClienteRepository = (*fakeClienteRepo)(nil)

func (r *fakeClienteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	for i := range r.clientes {
		if r.clientes[i].ID == id {
			return &r.clientes[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeClienteRepo) BuscarPorTelefono(_ context.Context, fragmento string, limit int) ([]model.Cliente, error) {
	r.lastArg = fragmento
	var out []model.Cliente
	for _, c := range r.clientes {
		if strings.Contains(c.Telefono, fragmento) && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAjusteRepo struct {
	valores map[string]*model.AjusteCita
}

var _ repository.AjusteRepository = (*fakeAjusteRepo)(nil)

func (r *fakeAjusteRepo) Get(_ context.Context, clave string) (*model.AjusteCita, error) {
	return r.valores[clave], nil
}

func (r *fakeAjusteRepo) Upsert(_ context.Context, clave, valor string) (*model.AjusteCita, error) {
	if r.valores == nil {
		r.valores = map[string]*model.AjusteCita{}
	}
	a := &model.AjusteCita{Clave: clave, Valor: valor, UpdatedAt: time.Now()}
	r.valores[clave] = a
	return a, nil
}

// ── Valuaciones ───────────────────────────────────────────────────────────────

// fakeValuacionRepo preloads Cliente from clientes, like the gorm Preload does.
type fakeValuacionRepo struct {
	vals     map[uuid.UUID]*model.Valuacion
	clientes map[uuid.UUID]*model.Cliente
}

var _ repository.ValuacionRepository = (*fakeValuacionRepo)(nil)

func newFakeValuacionRepo() *fakeValuacionRepo {
	return &fakeValuacionRepo{vals: map[uuid.UUID]*model.Valuacion{}, clientes: map[uuid.UUID]*model.Cliente{}}
}

func (r *fakeValuacionRepo) Create(_ context.Context, v *model.Valuacion) error {
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	cp := *v
	r.vals[v.ID] = &cp
	return nil
}

func (r *fakeValuacionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Valuacion, error) {
	v, ok := r.vals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	cp.Items = append([]model.ValuacionItem(nil), v.Items...)
	cp.Cliente = r.clientes[v.ClienteID]
	return &cp, nil
}

func (r *fakeValuacionRepo) AddItem(_ context.Context, it *model.ValuacionItem) error {
	v, ok := r.vals[it.ValuacionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	it.ID = uuid.New()
	v.Items = append(v.Items, *it)
	return nil
}

func (r *fakeValuacionRepo) Finalizar(_ context.Context, v *model.Valuacion, items []model.ValuacionItem) (bool, error) {
	stored, ok := r.vals[v.ID]
	if !ok || stored.Estado != model.ValuacionPendiente {
		return false, nil
	}
	cp := *v
	cp.Items = append([]model.ValuacionItem(nil), items...)
	r.vals[v.ID] = &cp
	return true, nil
}

func (r *fakeValuacionRepo) List(_ context.Context, f dto.ValuacionFilter) ([]model.Valuacion, int64, error) {
	var out []model.Valuacion
	for _, v := range r.vals {
		if f.Status == "" || v.Estado == f.Status {
			out = append(out, *v)
		}
	}
	return out, int64(len(out)), nil
}

// ── Ropa ──────────────────────────────────────────────────────────────────────

type fakePrecioRopaRepo struct {
	rows  []model.PrecioRopa
	lists int
}

var _ repository.PrecioRopaRepository = (*fakePrecioRopaRepo)(nil)

func (r *fakePrecioRopaRepo) FindActivo(_ context.Context, grupo, tipo, calidad string) (*model.PrecioRopa, error) {
	for i, p := range r.rows {
		if p.Activo && p.GrupoCategoria == grupo && p.TipoPrenda == tipo && p.NivelCalidad == calidad {
			return &r.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePrecioRopaRepo) List(_ context.Context, grupo string) ([]model.PrecioRopa, error) {
	r.lists++
	var out []model.PrecioRopa
	for _, p := range r.rows {
		if p.Activo && (grupo == "" || p.GrupoCategoria == grupo) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePrecioRopaRepo) TiposPrenda(_ context.Context, grupo string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range r.rows {
		if p.Activo && p.GrupoCategoria == grupo && !seen[p.TipoPrenda] {
			seen[p.TipoPrenda] = true
			out = append(out, p.TipoPrenda)
		}
	}
	sort.Strings(out)
	return out, nil
}

// memCache stores values as-is; it stands in for the Redis JSON cache.
type memCache struct {
	data map[string][]dto.PrecioRopaResponse
}

func (c *memCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	v, ok := c.data[key]
	if !ok {
		return false, nil
	}
	*(dst.(*[]dto.PrecioRopaResponse)) = v
	return true, nil
}

func (c *memCache) SetJSON(_ context.Context, key string, v interface{}) error {
	if c.data == nil {
		c.data = map[string][]dto.PrecioRopaResponse{}
	}
	c.data[key] = v.([]dto.PrecioRopaResponse)
	return nil
}

// ── Notifier ──────────────────────────────────────────────────────────────────

type fakeNotifier struct {
	mu       sync.Mutex
	payloads []interface{}
}

func (n *fakeNotifier) EnqueueEmail(_ context.Context, p interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
	return nil
}
