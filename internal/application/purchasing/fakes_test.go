package purchasing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bc-sync-api/internal/domain"
	"github.com/jhoicas/bc-sync-api/internal/domain/entity"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
	"github.com/jhoicas/bc-sync-api/internal/domain/repository"
)

// ─── Store en memoria ─────────────────────────────────────────────────────────

type stockKey struct{ product, salesperson int64 }

type memState struct {
	orders   map[int64]entity.PurchaseOrder
	lines    map[int64]entity.PurchaseOrderLine
	stock    map[stockKey]decimal.Decimal
	txns     []entity.StockTransaction
	invoices map[int64]entity.PurchaseInvoice
	returns  map[int64]entity.ReturnInvoice
	seq      int64
}

func (s memState) clone() memState {
	c := memState{
		orders:   make(map[int64]entity.PurchaseOrder, len(s.orders)),
		lines:    make(map[int64]entity.PurchaseOrderLine, len(s.lines)),
		stock:    make(map[stockKey]decimal.Decimal, len(s.stock)),
		txns:     append([]entity.StockTransaction(nil), s.txns...),
		invoices: make(map[int64]entity.PurchaseInvoice, len(s.invoices)),
		returns:  make(map[int64]entity.ReturnInvoice, len(s.returns)),
		seq:      s.seq,
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.returns {
		c.returns[k] = v
	}
	return c
}

type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   memState

	products        map[int64]*entity.Product
	salespersons    map[int64]*entity.Salesperson
	chargementTypes map[int64]*entity.ChargementType

	// failTxnAfter hace fallar el n-ésimo insert en el libro (1 = el primero).
	failTxnAfter int
	txnInserts   int
}

func newMemStore() *memStore {
	return &memStore{
		st: memState{
			orders:   map[int64]entity.PurchaseOrder{},
			lines:    map[int64]entity.PurchaseOrderLine{},
			stock:    map[stockKey]decimal.Decimal{},
			invoices: map[int64]entity.PurchaseInvoice{},
			returns:  map[int64]entity.ReturnInvoice{},
			seq:      1000,
		},
		products:        map[int64]*entity.Product{},
		salespersons:    map[int64]*entity.Salesperson{},
		chargementTypes: map[int64]*entity.ChargementType{},
	}
}

func (s *memStore) nextID() int64 {
	s.st.seq++
	return s.st.seq
}

// RunPurchasing implementa TxRunner: si fn falla se restaura el estado previo.
func (s *memStore) RunPurchasing(ctx context.Context, fn func(
	repository.PurchaseOrderRepository,
	repository.StockRepository,
	repository.StockTransactionRepository,
	repository.PurchaseInvoiceRepository,
	repository.ReturnInvoiceRepository,
) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(&memOrders{s}, &memStock{s}, &memTxns{s}, &memInvoices{s}, &memReturns{s}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) stockOf(productID, salespersonID int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.stock[stockKey{productID, salespersonID}]
}

func (s *memStore) transactions() []entity.StockTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.StockTransaction(nil), s.st.txns...)
}

func (s *memStore) invoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.invoices)
}

func (s *memStore) order(id int64) entity.PurchaseOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.orders[id]
}

func (s *memStore) line(id int64) entity.PurchaseOrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.lines[id]
}

// ─── Pedidos ──────────────────────────────────────────────────────────────────

type memOrders struct{ s *memStore }

func (r *memOrders) Create(_ context.Context, o *entity.PurchaseOrder, lines []*entity.PurchaseOrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.st.orders {
		if existing.Number == o.Number {
			return domain.ErrDuplicate
		}
	}
	o.ID = r.s.nextID()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	r.s.st.orders[o.ID] = *o
	for _, l := range lines {
		l.ID = r.s.nextID()
		l.OrderID = o.ID
		r.s.st.lines[l.ID] = *l
	}
	return nil
}

func (r *memOrders) NextNumber(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.st.orders) + 1), nil
}

func (r *memOrders) GetByID(_ context.Context, id int64) (*entity.PurchaseOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.st.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *memOrders) GetLines(_ context.Context, orderID int64) ([]*entity.PurchaseOrderLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.PurchaseOrderLine
	for _, l := range r.s.st.lines {
		if l.OrderID == orderID {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memOrders) ListByStatus(_ context.Context, status string, limit int) ([]*entity.PurchaseOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.PurchaseOrder
	for _, o := range r.s.st.orders {
		if o.Status == status {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memOrders) MarkSubmitted(_ context.Context, id int64, sub entity.Submission) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.st.orders[id]
	if !ok || o.Status != entity.OrderStatusNonValide || o.BCID != "" {
		return false, nil
	}
	o.Status = entity.OrderStatusEnvoyeBC
	o.BCID, o.BCNumber, o.BCEtag, o.BCStatus = sub.BCID, sub.BCNumber, sub.BCEtag, sub.BCStatus
	at := sub.SubmittedAt
	o.SubmittedAt, o.ValidatedAt = &at, &at
	actor := sub.ValidatedBy
	o.ValidatedBy = &actor
	r.s.st.orders[id] = o
	return true, nil
}

func (r *memOrders) TransitionStatus(_ context.Context, id int64, from, to string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.st.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if to == entity.OrderStatusExpedie {
		now := time.Now()
		o.ExpediedAt = &now
	}
	r.s.st.orders[id] = o
	return true, nil
}

func (r *memOrders) UpdateRemoteStatus(_ context.Context, id int64, rs entity.RemoteStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.st.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.BCEtag, o.BCStatus = rs.BCEtag, rs.BCStatus
	o.BCFullyShipped, o.BCShipmentNumber = rs.BCFullyShipped, rs.BCShipmentNumber
	o.BCInvoiced, o.BCInvoiceNumber = rs.BCInvoiced, rs.BCInvoiceNumber
	o.BCLastModified = rs.BCLastModified
	r.s.st.orders[id] = o
	return nil
}

func (r *memOrders) UpdateLineQuantity(_ context.Context, lineID int64, qte decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.st.lines[lineID]
	l.Qte = qte
	r.s.st.lines[lineID] = l
	return nil
}

func (r *memOrders) UpdateLineReceived(_ context.Context, lineID int64, qteRecue decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.st.lines[lineID]
	l.QteRecue = &qteRecue
	r.s.st.lines[lineID] = l
	return nil
}

// ─── Catálogo ─────────────────────────────────────────────────────────────────

type memProducts struct{ s *memStore }

func (r *memProducts) GetByID(_ context.Context, id int64) (*entity.Product, error) {
	return r.s.products[id], nil
}

func (r *memProducts) GetByIDs(_ context.Context, ids []int64) (map[int64]*entity.Product, error) {
	out := make(map[int64]*entity.Product)
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memSalespersons struct{ s *memStore }

func (r *memSalespersons) GetByID(_ context.Context, id int64) (*entity.Salesperson, error) {
	return r.s.salespersons[id], nil
}

type memChargementTypes struct{ s *memStore }

func (r *memChargementTypes) GetByID(_ context.Context, id int64) (*entity.ChargementType, error) {
	return r.s.chargementTypes[id], nil
}

// ─── Stock ────────────────────────────────────────────────────────────────────

type memStock struct{ s *memStore }

func (r *memStock) Get(_ context.Context, productID, salespersonID int64) (*entity.StockTotal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return &entity.StockTotal{ProductID: productID, SalespersonID: salespersonID,
		TotalStock: r.s.st.stock[stockKey{productID, salespersonID}]}, nil
}

func (r *memStock) Increment(_ context.Context, productID, salespersonID int64, qty decimal.Decimal) (*entity.StockTotal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := stockKey{productID, salespersonID}
	r.s.st.stock[k] = r.s.st.stock[k].Add(qty)
	return &entity.StockTotal{ProductID: productID, SalespersonID: salespersonID, TotalStock: r.s.st.stock[k]}, nil
}

func (r *memStock) Decrement(_ context.Context, productID, salespersonID int64, qty decimal.Decimal) (*entity.StockTotal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := stockKey{productID, salespersonID}
	next := r.s.st.stock[k].Sub(qty)
	if next.IsNegative() {
		next = decimal.Zero
	}
	r.s.st.stock[k] = next
	return &entity.StockTotal{ProductID: productID, SalespersonID: salespersonID, TotalStock: next}, nil
}

type memTxns struct{ s *memStore }

func (r *memTxns) Create(_ context.Context, t *entity.StockTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.txnInserts++
	if r.s.failTxnAfter > 0 && r.s.txnInserts == r.s.failTxnAfter {
		return errors.New("insert stock transaction: fallo simulado")
	}
	t.ID = r.s.nextID()
	t.CreatedAt = time.Now()
	r.s.st.txns = append(r.s.st.txns, *t)
	return nil
}

func (r *memTxns) ListByProductAndSalesperson(_ context.Context, productID, salespersonID int64, limit, offset int) ([]*entity.StockTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.StockTransaction
	for i := len(r.s.st.txns) - 1; i >= 0; i-- {
		t := r.s.st.txns[i]
		if t.ProductID == productID && t.SalespersonID == salespersonID {
			out = append(out, &t)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTxns) ListBySource(_ context.Context, src entity.StockSource) ([]*entity.StockTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.StockTransaction
	for _, t := range r.s.st.txns {
		if t.Source == src {
			t := t
			out = append(out, &t)
		}
	}
	return out, nil
}

// ─── Facturas y devoluciones ──────────────────────────────────────────────────

type memInvoices struct{ s *memStore }

func (r *memInvoices) Create(_ context.Context, inv *entity.PurchaseInvoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.st.invoices {
		if existing.PurchaseOrderID == inv.PurchaseOrderID || existing.Number == inv.Number {
			return domain.ErrDuplicate
		}
	}
	inv.ID = r.s.nextID()
	inv.CreatedAt = time.Now()
	for i := range inv.Lines {
		inv.Lines[i].ID = r.s.nextID()
		inv.Lines[i].InvoiceID = inv.ID
	}
	cp := *inv
	cp.Lines = append([]entity.PurchaseInvoiceLine(nil), inv.Lines...)
	r.s.st.invoices[inv.ID] = cp
	return nil
}

func (r *memInvoices) GetByID(_ context.Context, id int64) (*entity.PurchaseInvoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.st.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *memInvoices) GetByPurchaseOrderID(_ context.Context, orderID int64) (*entity.PurchaseInvoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.st.invoices {
		if inv.PurchaseOrderID == orderID {
			return &inv, nil
		}
	}
	return nil, nil
}

func (r *memInvoices) ExistsForOrder(ctx context.Context, orderID int64) (bool, error) {
	inv, err := r.GetByPurchaseOrderID(ctx, orderID)
	return inv != nil, err
}

type memReturns struct{ s *memStore }

func (r *memReturns) Create(_ context.Context, ret *entity.ReturnInvoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.st.returns {
		if existing.PurchaseOrderID == ret.PurchaseOrderID {
			return domain.ErrDuplicate
		}
	}
	ret.ID = r.s.nextID()
	ret.CreatedAt = time.Now()
	cp := *ret
	cp.Lines = append([]entity.ReturnInvoiceLine(nil), ret.Lines...)
	r.s.st.returns[ret.ID] = cp
	return nil
}

func (r *memReturns) GetByPurchaseOrderID(_ context.Context, orderID int64) (*entity.ReturnInvoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ret := range r.s.st.returns {
		if ret.PurchaseOrderID == orderID {
			return &ret, nil
		}
	}
	return nil, nil
}

// ─── ERP falso ────────────────────────────────────────────────────────────────

type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	createOrderErr error
	headerID       string
	lineErrs       map[string]error // por número de artículo
	locationErr    error
	deleted        []string
	createdLines   []erp.SalesOrderLineInput
	locations      map[string]string // bc line id → ubicación

	salesOrder    *erp.SalesOrder
	getOrderErr   error
	shipments     []erp.Shipment
	shipmentLines map[string][]erp.DocumentLine
	invoice       *erp.Invoice
	invoiceLines  []erp.DocumentLine
	invoiceErr    error

	memoLineErr error
	memoLines   []erp.SalesOrderLineInput
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		headerID:      "so-guid-1",
		lineErrs:      map[string]error{},
		locations:     map[string]string{},
		shipmentLines: map[string][]erp.DocumentLine{},
	}
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	g.calls = append(g.calls, call)
	g.mu.Unlock()
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGateway) CreateSalesOrder(_ context.Context, in erp.SalesOrderInput) (*erp.SalesOrder, error) {
	g.record("CreateSalesOrder")
	if g.createOrderErr != nil {
		return nil, g.createOrderErr
	}
	return &erp.SalesOrder{ID: g.headerID, Number: "SO-1001", Status: "Draft", ETag: `W/"h1"`}, nil
}

func (g *fakeGateway) GetSalesOrder(_ context.Context, id string) (*erp.SalesOrder, error) {
	g.record("GetSalesOrder")
	if g.getOrderErr != nil {
		return nil, g.getOrderErr
	}
	if g.salesOrder != nil {
		return g.salesOrder, nil
	}
	return &erp.SalesOrder{ID: id, Number: "SO-1001", Status: "Open", ETag: `W/"h2"`}, nil
}

func (g *fakeGateway) DeleteSalesOrder(_ context.Context, id string) error {
	g.record("DeleteSalesOrder")
	g.mu.Lock()
	g.deleted = append(g.deleted, id)
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) CreateSalesOrderLine(_ context.Context, _ string, in erp.SalesOrderLineInput) (*erp.SalesOrderLine, error) {
	g.record("CreateSalesOrderLine")
	if err := g.lineErrs[in.ItemNumber]; err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createdLines = append(g.createdLines, in)
	return &erp.SalesOrderLine{ID: "line-" + in.ItemNumber, ETag: `W/"l"`}, nil
}

func (g *fakeGateway) UpdateSalesOrderLineLocation(_ context.Context, _, lineID, _, locationID string) error {
	g.record("UpdateSalesOrderLineLocation")
	if g.locationErr != nil {
		return g.locationErr
	}
	g.mu.Lock()
	g.locations[lineID] = locationID
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) FindShipmentsByOrderNumber(context.Context, string) ([]erp.Shipment, error) {
	g.record("FindShipmentsByOrderNumber")
	return g.shipments, nil
}

func (g *fakeGateway) ListShipmentLines(_ context.Context, shipmentID string) ([]erp.DocumentLine, error) {
	g.record("ListShipmentLines")
	return g.shipmentLines[shipmentID], nil
}

func (g *fakeGateway) FindInvoiceByOrderNumber(context.Context, string) (*erp.Invoice, error) {
	g.record("FindInvoiceByOrderNumber")
	return g.invoice, nil
}

func (g *fakeGateway) FindInvoiceByNumber(_ context.Context, number string) (*erp.Invoice, error) {
	g.record("FindInvoiceByNumber")
	if g.invoice != nil && g.invoice.Number == number {
		return g.invoice, nil
	}
	return nil, nil
}

func (g *fakeGateway) ListInvoiceLines(context.Context, string) ([]erp.DocumentLine, error) {
	g.record("ListInvoiceLines")
	if g.invoiceErr != nil {
		return nil, g.invoiceErr
	}
	return g.invoiceLines, nil
}

func (g *fakeGateway) CreateCreditMemo(context.Context, erp.CreditMemoInput) (*erp.CreditMemo, error) {
	g.record("CreateCreditMemo")
	return &erp.CreditMemo{ID: "cm-guid-1", Number: "CM-1"}, nil
}

func (g *fakeGateway) CreateCreditMemoLine(_ context.Context, _ string, in erp.SalesOrderLineInput) error {
	g.record("CreateCreditMemoLine")
	if g.memoLineErr != nil {
		return g.memoLineErr
	}
	g.mu.Lock()
	g.memoLines = append(g.memoLines, in)
	g.mu.Unlock()
	return nil
}

// ─── Locker falso ─────────────────────────────────────────────────────────────

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func (l *fakeLocker) Obtain(_ context.Context, key string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}

// ─── Fixture ──────────────────────────────────────────────────────────────────

const (
	spID        int64 = 1
	ctID        int64 = 5
	productA    int64 = 10 // artículo 1000
	productB    int64 = 20 // artículo 2000 / guid-20
	productNoBC int64 = 30
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	uc     *PurchaseOrderUseCase
	store  *memStore
	gw     *fakeGateway
	locker *fakeLocker

	orderSeq int
}

func newFixture() *fixture {
	store := newMemStore()
	store.salespersons[spID] = &entity.Salesperson{ID: spID, Name: "Amine", BCCustomerNumber: "C0001"}
	store.products[productA] = &entity.Product{ID: productA, Reference: "P-A", Name: "Eau 1.5L", BCItemNumber: "1000"}
	store.products[productB] = &entity.Product{ID: productB, Reference: "P-B", Name: "Jus 1L", BCItemNumber: "2000", BCItemID: "guid-20"}
	store.products[productNoBC] = &entity.Product{ID: productNoBC, Reference: "P-X", Name: "Sans lien"}
	store.chargementTypes[ctID] = &entity.ChargementType{
		ID: ctID, Name: "Camion", BCLocationID: "LOC-A",
		Items: []entity.ChargementTypeItem{{ProductID: productB, BCLocationID: "LOC-B"}},
	}

	gw := newFakeGateway()
	locker := &fakeLocker{held: map[string]bool{}}
	uc := NewPurchaseOrderUseCase(Deps{
		Orders:          &memOrders{store},
		Products:        &memProducts{store},
		Salespersons:    &memSalespersons{store},
		ChargementTypes: &memChargementTypes{store},
		Invoices:        &memInvoices{store},
		Returns:         &memReturns{store},
		TxRunner:        store,
		Gateway:         gw,
		Locker:          locker,
		Logger:          zerolog.Nop(),
	}, Config{
		DefaultLocationID: "LOC-DEFAULT",
		CompensateOrphans: true,
		FiscalStamp:       decimal.RequireFromString("1.00"),
		InvoicePrefix:     "FA",
	})
	uc.now = func() time.Time { return fixedNow }
	return &fixture{uc: uc, store: store, gw: gw, locker: locker}
}

// seedOrder crea un pedido non_valide con líneas (producto, cantidad) y devuelve ids.
func (f *fixture) seedOrder(lines ...lineSpec) (orderID int64, lineIDs []int64) {
	ct := ctID
	f.orderSeq++
	o := &entity.PurchaseOrder{Number: fmt.Sprintf("BC-TEST-%04d", f.orderSeq),
		SalespersonID: spID, ChargementTypeID: &ct, Status: entity.OrderStatusNonValide}
	ls := make([]*entity.PurchaseOrderLine, 0, len(lines))
	for _, l := range lines {
		ls = append(ls, &entity.PurchaseOrderLine{ProductID: l.product, Qte: decimal.RequireFromString(l.qte)})
	}
	if err := (&memOrders{f.store}).Create(context.Background(), o, ls); err != nil {
		panic(err)
	}
	for _, l := range ls {
		lineIDs = append(lineIDs, l.ID)
	}
	return o.ID, lineIDs
}

type lineSpec struct {
	product int64
	qte     string
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
