// Package domaintest provides in-memory repository fakes for engine tests.
// They mirror the locking and copy semantics of the postgres repositories:
// reads hand out copies, writes check the optimistic guard, so tests catch
// services that mutate loaded state without saving it.
//
// The fakes are not safe for concurrent use.
package domaintest

import (
	"context"

	"storecore/internal/core/apperror"
	"storecore/internal/core/id"
	"storecore/internal/core/tx"
	"storecore/internal/core/types"
	"storecore/internal/domain/catalog/customer"
	"storecore/internal/domain/catalog/location"
	"storecore/internal/domain/catalog/product"
	"storecore/internal/domain/journal"
	"storecore/internal/domain/ledger"
	"storecore/internal/domain/procurement"
	"storecore/internal/domain/returns"
	"storecore/internal/domain/sales"
	"storecore/internal/domain/transfer"
)

// TxManager is a pass-through tx.Manager for tests.
type TxManager struct{}

func (TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ProductRepo is an in-memory product.Repository.
type ProductRepo struct {
	Products map[id.ID]*product.Product
	History  map[id.ID][]product.CostChange
}

func NewProductRepo(products ...*product.Product) *ProductRepo {
	r := &ProductRepo{
		Products: make(map[id.ID]*product.Product),
		History:  make(map[id.ID][]product.CostChange),
	}
	for _, p := range products {
		r.Products[p.ID] = p
	}
	return r
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	p, ok := r.Products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) GetByIDs(ctx context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	result := make(map[id.ID]*product.Product, len(productIDs))
	for _, pid := range productIDs {
		if p, ok := r.Products[pid]; ok {
			cp := *p
			result[pid] = &cp
		}
	}
	return result, nil
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	cp := *p
	r.Products[p.ID] = &cp
	return nil
}

func (r *ProductRepo) UpdateUnitCost(ctx context.Context, p *product.Product, change product.CostChange) error {
	stored, ok := r.Products[p.ID]
	if !ok {
		return apperror.NewNotFound("product", p.ID.String())
	}
	stored.UnitCost = p.UnitCost
	r.History[p.ID] = append([]product.CostChange{change}, r.History[p.ID]...)
	return nil
}

func (r *ProductRepo) CostHistory(ctx context.Context, productID id.ID, limit int) ([]product.CostChange, error) {
	history := r.History[productID]
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// CustomerRepo is an in-memory customer.Repository.
type CustomerRepo struct {
	Customers map[id.ID]*customer.Customer
}

func NewCustomerRepo(customers ...*customer.Customer) *CustomerRepo {
	r := &CustomerRepo{Customers: make(map[id.ID]*customer.Customer)}
	for _, c := range customers {
		r.Customers[c.ID] = c
	}
	return r
}

func (r *CustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	c, ok := r.Customers[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID.String())
	}
	cp := *c
	return &cp, nil
}

func (r *CustomerRepo) GetForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.GetByID(ctx, customerID)
}

func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	cp := *c
	r.Customers[c.ID] = &cp
	return nil
}

func (r *CustomerRepo) UpdateBalance(ctx context.Context, c *customer.Customer) error {
	stored, ok := r.Customers[c.ID]
	if !ok {
		return apperror.NewNotFound("customer", c.ID.String())
	}
	if stored.Version != c.Version {
		return apperror.NewConcurrentModification("customer", c.ID.String())
	}
	stored.CurrentBalance = c.CurrentBalance
	stored.Version++
	c.Version++
	return nil
}

// Balance returns the stored balance for assertions.
func (r *CustomerRepo) Balance(customerID id.ID) types.Money {
	return r.Customers[customerID].CurrentBalance
}

// LocationRepo is an in-memory location.Repository.
type LocationRepo struct {
	Locations map[id.ID]*location.Location
}

func NewLocationRepo(locations ...*location.Location) *LocationRepo {
	r := &LocationRepo{Locations: make(map[id.ID]*location.Location)}
	for _, l := range locations {
		r.Locations[l.ID] = l
	}
	return r
}

func (r *LocationRepo) GetByID(ctx context.Context, locationID id.ID) (*location.Location, error) {
	l, ok := r.Locations[locationID]
	if !ok {
		return nil, apperror.NewNotFound("location", locationID.String())
	}
	cp := *l
	return &cp, nil
}

func (r *LocationRepo) Exists(ctx context.Context, locationID id.ID) (bool, error) {
	_, ok := r.Locations[locationID]
	return ok, nil
}

func (r *LocationRepo) Create(ctx context.Context, l *location.Location) error {
	cp := *l
	r.Locations[l.ID] = &cp
	return nil
}

type stockKey struct {
	productID  id.ID
	locationID id.ID
}

// LedgerRepo is an in-memory ledger.Repository with the same revision
// compare-and-swap behavior as the postgres implementation.
type LedgerRepo struct {
	Records map[stockKey]*ledger.StockRecord
}

func NewLedgerRepo() *LedgerRepo {
	return &LedgerRepo{Records: make(map[stockKey]*ledger.StockRecord)}
}

func copyStock(rec *ledger.StockRecord) *ledger.StockRecord {
	cp := *rec
	cp.Batches = make([]ledger.Batch, len(rec.Batches))
	copy(cp.Batches, rec.Batches)
	return &cp
}

func (r *LedgerRepo) Get(ctx context.Context, productID, locationID id.ID) (*ledger.StockRecord, error) {
	rec, ok := r.Records[stockKey{productID, locationID}]
	if !ok {
		return nil, apperror.NewNotFound("stock record", productID.String())
	}
	return copyStock(rec), nil
}

func (r *LedgerRepo) GetForUpdate(ctx context.Context, productID, locationID id.ID) (*ledger.StockRecord, error) {
	return r.Get(ctx, productID, locationID)
}

func (r *LedgerRepo) Create(ctx context.Context, rec *ledger.StockRecord) error {
	rec.Revision = 1
	r.Records[stockKey{rec.ProductID, rec.LocationID}] = copyStock(rec)
	return nil
}

func (r *LedgerRepo) Save(ctx context.Context, rec *ledger.StockRecord) error {
	key := stockKey{rec.ProductID, rec.LocationID}
	stored, ok := r.Records[key]
	if !ok {
		return apperror.NewNotFound("stock record", rec.ProductID.String())
	}
	if stored.Revision != rec.Revision {
		return apperror.NewConcurrentModification("stock record", rec.ID.String())
	}
	rec.Revision++
	r.Records[key] = copyStock(rec)
	return nil
}

func (r *LedgerRepo) ListByLocation(ctx context.Context, locationID id.ID) ([]*ledger.StockRecord, error) {
	var result []*ledger.StockRecord
	for key, rec := range r.Records {
		if key.locationID == locationID && rec.Quantity.IsPositive() {
			result = append(result, copyStock(rec))
		}
	}
	return result, nil
}

func (r *LedgerRepo) TotalQuantity(ctx context.Context, productID id.ID) (types.Quantity, error) {
	var total types.Quantity
	for key, rec := range r.Records {
		if key.productID == productID {
			total += rec.Quantity
		}
	}
	return total, nil
}

// Seed places a record with the given batches, bypassing the service.
func (r *LedgerRepo) Seed(productID, locationID id.ID, batches ...ledger.Batch) *ledger.StockRecord {
	rec := ledger.NewStockRecord(productID, locationID)
	for _, b := range batches {
		rec.AddBatch(b)
	}
	rec.Revision = 1
	r.Records[stockKey{productID, locationID}] = rec
	return rec
}

// Stored returns the stored record for assertions, nil when absent.
func (r *LedgerRepo) Stored(productID, locationID id.ID) *ledger.StockRecord {
	return r.Records[stockKey{productID, locationID}]
}

// JournalRepo is an in-memory journal.Repository.
type JournalRepo struct {
	Entries []journal.StockTransaction
}

func NewJournalRepo() *JournalRepo {
	return &JournalRepo{}
}

func (r *JournalRepo) Append(ctx context.Context, entries []journal.StockTransaction) error {
	r.Entries = append(r.Entries, entries...)
	return nil
}

func (r *JournalRepo) ListByProduct(ctx context.Context, productID id.ID, filter journal.EntryFilter) ([]journal.StockTransaction, error) {
	var result []journal.StockTransaction
	for _, e := range r.Entries {
		if e.ProductID != productID {
			continue
		}
		if filter.LocationID != nil && e.LocationID != *filter.LocationID {
			continue
		}
		if filter.Type != nil && e.Type != *filter.Type {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (r *JournalRepo) ListBySource(ctx context.Context, source journal.SourceRef) ([]journal.StockTransaction, error) {
	var result []journal.StockTransaction
	for _, e := range r.Entries {
		if e.SourceType == source.Type && e.SourceID == source.ID {
			result = append(result, e)
		}
	}
	return result, nil
}

// ByType returns stored entries of one movement type.
func (r *JournalRepo) ByType(txType journal.TxType) []journal.StockTransaction {
	var result []journal.StockTransaction
	for _, e := range r.Entries {
		if e.Type == txType {
			result = append(result, e)
		}
	}
	return result
}

// SalesOrderRepo is an in-memory sales.Repository.
type SalesOrderRepo struct {
	Orders map[id.ID]*sales.SalesOrder
}

func NewSalesOrderRepo(orders ...*sales.SalesOrder) *SalesOrderRepo {
	r := &SalesOrderRepo{Orders: make(map[id.ID]*sales.SalesOrder)}
	for _, o := range orders {
		r.Orders[o.ID] = copyOrder(o)
	}
	return r
}

func copyOrder(o *sales.SalesOrder) *sales.SalesOrder {
	cp := *o
	cp.Lines = make([]sales.LineItem, len(o.Lines))
	copy(cp.Lines, o.Lines)
	cp.ReturnIDs = append([]id.ID(nil), o.ReturnIDs...)
	return &cp
}

func (r *SalesOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*sales.SalesOrder, error) {
	o, ok := r.Orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("sales order", orderID.String())
	}
	return copyOrder(o), nil
}

func (r *SalesOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*sales.SalesOrder, error) {
	return r.GetByID(ctx, orderID)
}

func (r *SalesOrderRepo) Create(ctx context.Context, order *sales.SalesOrder) error {
	r.Orders[order.ID] = copyOrder(order)
	return nil
}

func (r *SalesOrderRepo) Update(ctx context.Context, order *sales.SalesOrder) error {
	if _, ok := r.Orders[order.ID]; !ok {
		return apperror.NewNotFound("sales order", order.ID.String())
	}
	r.Orders[order.ID] = copyOrder(order)
	return nil
}

func (r *SalesOrderRepo) ListByCustomer(ctx context.Context, customerID id.ID, limit int) ([]*sales.SalesOrder, error) {
	var result []*sales.SalesOrder
	for _, o := range r.Orders {
		if o.CustomerID == customerID {
			result = append(result, copyOrder(o))
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// PurchaseOrderRepo is an in-memory procurement.Repository.
type PurchaseOrderRepo struct {
	Orders map[id.ID]*procurement.PurchaseOrder
}

func NewPurchaseOrderRepo(orders ...*procurement.PurchaseOrder) *PurchaseOrderRepo {
	r := &PurchaseOrderRepo{Orders: make(map[id.ID]*procurement.PurchaseOrder)}
	for _, po := range orders {
		r.Orders[po.ID] = copyPO(po)
	}
	return r
}

func copyPO(po *procurement.PurchaseOrder) *procurement.PurchaseOrder {
	cp := *po
	cp.Lines = make([]procurement.POLine, len(po.Lines))
	copy(cp.Lines, po.Lines)
	cp.Receipts = make([]procurement.GoodsReceipt, len(po.Receipts))
	for i, rec := range po.Receipts {
		items := make([]procurement.ReceiptItem, len(rec.Items))
		copy(items, rec.Items)
		rec.Items = items
		cp.Receipts[i] = rec
	}
	return &cp
}

func (r *PurchaseOrderRepo) GetByID(ctx context.Context, poID id.ID) (*procurement.PurchaseOrder, error) {
	po, ok := r.Orders[poID]
	if !ok {
		return nil, apperror.NewNotFound("purchase order", poID.String())
	}
	return copyPO(po), nil
}

func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, poID id.ID) (*procurement.PurchaseOrder, error) {
	return r.GetByID(ctx, poID)
}

func (r *PurchaseOrderRepo) Create(ctx context.Context, po *procurement.PurchaseOrder) error {
	r.Orders[po.ID] = copyPO(po)
	return nil
}

func (r *PurchaseOrderRepo) Update(ctx context.Context, po *procurement.PurchaseOrder) error {
	if _, ok := r.Orders[po.ID]; !ok {
		return apperror.NewNotFound("purchase order", po.ID.String())
	}
	r.Orders[po.ID] = copyPO(po)
	return nil
}

func (r *PurchaseOrderRepo) AppendReceipt(ctx context.Context, poID id.ID, receipt procurement.GoodsReceipt) error {
	po, ok := r.Orders[poID]
	if !ok {
		return apperror.NewNotFound("purchase order", poID.String())
	}
	po.Receipts = append(po.Receipts, receipt)
	return nil
}

// ReturnRepo is an in-memory returns.Repository.
type ReturnRepo struct {
	Returns map[id.ID]*returns.ReturnsExchange
}

func NewReturnRepo() *ReturnRepo {
	return &ReturnRepo{Returns: make(map[id.ID]*returns.ReturnsExchange)}
}

func copyReturn(ret *returns.ReturnsExchange) *returns.ReturnsExchange {
	cp := *ret
	cp.Lines = make([]returns.ReturnLine, len(ret.Lines))
	copy(cp.Lines, ret.Lines)
	if ret.RestockLocationID != nil {
		loc := *ret.RestockLocationID
		cp.RestockLocationID = &loc
	}
	return &cp
}

func (r *ReturnRepo) GetByID(ctx context.Context, returnID id.ID) (*returns.ReturnsExchange, error) {
	ret, ok := r.Returns[returnID]
	if !ok {
		return nil, apperror.NewNotFound("return", returnID.String())
	}
	return copyReturn(ret), nil
}

func (r *ReturnRepo) Create(ctx context.Context, ret *returns.ReturnsExchange) error {
	r.Returns[ret.ID] = copyReturn(ret)
	return nil
}

func (r *ReturnRepo) ListByOrder(ctx context.Context, orderID id.ID) ([]*returns.ReturnsExchange, error) {
	var result []*returns.ReturnsExchange
	for _, ret := range r.Returns {
		if ret.SalesOrderID == orderID {
			result = append(result, copyReturn(ret))
		}
	}
	return result, nil
}

// TransferRepo is an in-memory transfer.Repository.
type TransferRepo struct {
	Transfers map[id.ID]*transfer.StockTransfer
}

func NewTransferRepo() *TransferRepo {
	return &TransferRepo{Transfers: make(map[id.ID]*transfer.StockTransfer)}
}

func (r *TransferRepo) GetByID(ctx context.Context, transferID id.ID) (*transfer.StockTransfer, error) {
	t, ok := r.Transfers[transferID]
	if !ok {
		return nil, apperror.NewNotFound("stock transfer", transferID.String())
	}
	cp := *t
	return &cp, nil
}

func (r *TransferRepo) GetForUpdate(ctx context.Context, transferID id.ID) (*transfer.StockTransfer, error) {
	return r.GetByID(ctx, transferID)
}

func (r *TransferRepo) Create(ctx context.Context, t *transfer.StockTransfer) error {
	cp := *t
	r.Transfers[t.ID] = &cp
	return nil
}

func (r *TransferRepo) Update(ctx context.Context, t *transfer.StockTransfer) error {
	if _, ok := r.Transfers[t.ID]; !ok {
		return apperror.NewNotFound("stock transfer", t.ID.String())
	}
	cp := *t
	r.Transfers[t.ID] = &cp
	return nil
}

// Compile-time interface compliance.
var (
	_ tx.Manager             = TxManager{}
	_ product.Repository     = (*ProductRepo)(nil)
	_ customer.Repository    = (*CustomerRepo)(nil)
	_ location.Repository    = (*LocationRepo)(nil)
	_ ledger.Repository      = (*LedgerRepo)(nil)
	_ journal.Repository     = (*JournalRepo)(nil)
	_ sales.Repository       = (*SalesOrderRepo)(nil)
	_ procurement.Repository = (*PurchaseOrderRepo)(nil)
	_ returns.Repository     = (*ReturnRepo)(nil)
	_ transfer.Repository    = (*TransferRepo)(nil)
)
