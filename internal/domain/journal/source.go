package journal

import (
	"fmt"

	"storecore/internal/core/id"
)

// SourceType identifies the kind of document that caused a stock movement.
type SourceType string

const (
	SourceSalesOrder    SourceType = "sales_order"
	SourcePurchaseOrder SourceType = "purchase_order"
	SourceTransfer      SourceType = "stock_transfer"
	SourceReturn        SourceType = "return"
	SourceAdjustment    SourceType = "adjustment"
)

// SourceRef is a typed reference to the document that originated a
// transaction. Modeled as a tagged union so new source kinds must be
// handled everywhere a SourceRef is consumed.
type SourceRef struct {
	Type SourceType `db:"source_type" json:"sourceType"`
	ID   id.ID      `db:"source_id" json:"sourceId"`
}

// Constructors for each source kind keep call sites honest about the tag.

func SalesOrderSource(orderID id.ID) SourceRef {
	return SourceRef{Type: SourceSalesOrder, ID: orderID}
}

func PurchaseOrderSource(poID id.ID) SourceRef {
	return SourceRef{Type: SourcePurchaseOrder, ID: poID}
}

func TransferSource(transferID id.ID) SourceRef {
	return SourceRef{Type: SourceTransfer, ID: transferID}
}

func ReturnSource(returnID id.ID) SourceRef {
	return SourceRef{Type: SourceReturn, ID: returnID}
}

func AdjustmentSource(adjustmentID id.ID) SourceRef {
	return SourceRef{Type: SourceAdjustment, ID: adjustmentID}
}

// Validate checks the tag and the referenced id.
func (s SourceRef) Validate() error {
	switch s.Type {
	case SourceSalesOrder, SourcePurchaseOrder, SourceTransfer, SourceReturn, SourceAdjustment:
	default:
		return fmt.Errorf("unknown source type %q", s.Type)
	}
	if id.IsNil(s.ID) {
		return fmt.Errorf("source id is required for %s", s.Type)
	}
	return nil
}

func (s SourceRef) String() string {
	return fmt.Sprintf("%s:%s", s.Type, s.ID)
}
