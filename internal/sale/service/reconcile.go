package service

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tillpoint/internal/sale/domain"
)

// parsedItem is a SaleItemInput after validation and ID parsing. ID is
// zero for lines with no persisted identity.
type parsedItem struct {
	ID        snowflake.ID
	ProductID snowflake.ID
	Quantity  int64
	UnitPrice decimal.Decimal
}

type itemUpdate struct {
	original  domain.SaleItem
	quantity  int64
	unitPrice decimal.Decimal
	// stockDelta is original quantity minus new quantity: raising the
	// quantity decrements stock further, lowering it returns stock.
	stockDelta int64
}

// reconciliationPlan is the minimal set of row operations that moves a
// sale's persisted items to the desired state, with the stock delta each
// one implies. The three categories are independent per line; only the
// grouping matters, not cross-item order.
type reconciliationPlan struct {
	deletes []domain.SaleItem
	updates []itemUpdate
	inserts []domain.SaleItem
}

func (p reconciliationPlan) empty() bool {
	return len(p.deletes) == 0 && len(p.updates) == 0 && len(p.inserts) == 0
}

// stockDeltas sums the plan's signed stock adjustments per product.
func (p reconciliationPlan) stockDeltas() map[snowflake.ID]int64 {
	deltas := make(map[snowflake.ID]int64)
	for _, item := range p.deletes {
		deltas[item.ProductID] += item.Quantity
	}
	for _, upd := range p.updates {
		deltas[upd.original.ProductID] += upd.stockDelta
	}
	for _, item := range p.inserts {
		deltas[item.ProductID] -= item.Quantity
	}
	for id, delta := range deltas {
		if delta == 0 {
			delete(deltas, id)
		}
	}
	return deltas
}

// reconcile diffs the desired lines against the persisted originals.
// Matching is by persisted line ID: a desired line whose ID is zero or
// unknown is treated as new, an original absent from the desired set is
// deleted, and a matched line with a changed quantity or unit price is
// updated. Unchanged matches produce no operation.
func reconcile(saleID snowflake.ID, desired []parsedItem, originals []domain.SaleItem, newID func() snowflake.ID, now time.Time) reconciliationPlan {
	originalsByID := make(map[snowflake.ID]domain.SaleItem, len(originals))
	for _, item := range originals {
		originalsByID[item.ID] = item
	}

	keep := make(map[snowflake.ID]bool, len(desired))
	for _, d := range desired {
		if d.ID != 0 {
			keep[d.ID] = true
		}
	}

	var plan reconciliationPlan
	for _, item := range originals {
		if !keep[item.ID] {
			plan.deletes = append(plan.deletes, item)
		}
	}

	for _, d := range desired {
		original, matched := originalsByID[d.ID]
		if d.ID == 0 || !matched {
			plan.inserts = append(plan.inserts, domain.SaleItem{
				ID:         newID(),
				SaleID:     saleID,
				ProductID:  d.ProductID,
				Quantity:   d.Quantity,
				UnitPrice:  d.UnitPrice,
				TotalPrice: d.UnitPrice.Mul(decimal.NewFromInt(d.Quantity)),
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			continue
		}

		if d.Quantity != original.Quantity || !d.UnitPrice.Equal(original.UnitPrice) {
			plan.updates = append(plan.updates, itemUpdate{
				original:   original,
				quantity:   d.Quantity,
				unitPrice:  d.UnitPrice,
				stockDelta: original.Quantity - d.Quantity,
			})
		}
	}

	return plan
}
