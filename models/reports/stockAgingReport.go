package reports

import (
	"context"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/shopspring/decimal"
)

type StockAgingFilter struct {
	ItemName string     `json:"item_name"`
	BranchId *int       `json:"branch_id"`
	AsOfDate *time.Time `json:"as_of_date"`
}

// purchaseLot is one purchase line treated as a FIFO lot.
type purchaseLot struct {
	ItemName  string          `json:"item_name"`
	Quantity  decimal.Decimal `json:"quantity"`
	PriceKwd  decimal.Decimal `json:"price_kwd"`
	OrderDate time.Time       `json:"order_date"`
}

type itemConsumption struct {
	ItemName string          `json:"item_name"`
	Consumed decimal.Decimal `json:"consumed"`
}

type StockAgingRow struct {
	ItemName      string          `json:"item_name"`
	Qty0To30      decimal.Decimal `json:"qty_0_30"`
	Value0To30    decimal.Decimal `json:"value_0_30"`
	Qty31To60     decimal.Decimal `json:"qty_31_60"`
	Value31To60   decimal.Decimal `json:"value_31_60"`
	Qty61To90     decimal.Decimal `json:"qty_61_90"`
	Value61To90   decimal.Decimal `json:"value_61_90"`
	QtyOver90     decimal.Decimal `json:"qty_over_90"`
	ValueOver90   decimal.Decimal `json:"value_over_90"`
	TotalQty      decimal.Decimal `json:"total_qty"`
	TotalValueKwd decimal.Decimal `json:"total_value_kwd"`
}

type StockAgingResponse struct {
	Rows          []*StockAgingRow `json:"rows"`
	TotalQty      decimal.Decimal  `json:"total_qty"`
	TotalValueKwd decimal.Decimal  `json:"total_value_kwd"`
	AsOfDate      time.Time        `json:"as_of_date"`
}

// GetStockAging values on-hand stock per item by age of its originating
// purchase lots. Consumption (sales plus purchase returns minus sale
// returns) eats lots oldest-first; whatever survives is bucketed by days
// since the lot's order date.
func GetStockAging(ctx context.Context, filter StockAgingFilter) (*StockAgingResponse, error) {
	started := time.Now()
	defer logSlowReport(ctx, "stock_aging", started, map[string]any{"item": filter.ItemName})

	asOf := time.Now()
	if filter.AsOfDate != nil {
		asOf = *filter.AsOfDate
	}

	db := config.GetDB()

	lotsSql := `
SELECT d.item_name, d.quantity, d.price_kwd, p.order_date
FROM purchase_order_details d
JOIN purchase_orders p ON p.id = d.purchase_order_id
WHERE p.order_date <= ?`
	lotsArgs := []interface{}{asOf}
	if filter.ItemName != "" {
		lotsSql += " AND d.item_name = ?"
		lotsArgs = append(lotsArgs, filter.ItemName)
	}
	if filter.BranchId != nil {
		lotsSql += " AND p.branch_id = ?"
		lotsArgs = append(lotsArgs, *filter.BranchId)
	}
	lotsSql += " ORDER BY d.item_name, p.order_date ASC, p.id ASC, d.id ASC"

	var lots []purchaseLot
	if err := db.WithContext(ctx).Raw(lotsSql, lotsArgs...).Scan(&lots).Error; err != nil {
		return nil, err
	}

	// consumption is scoped the same way as the lots, or a branch-filtered
	// report would subtract other branches' sales from this branch's stock
	saleBranch, returnBranch := "", ""
	if filter.BranchId != nil {
		saleBranch = " AND s.branch_id = ?"
		returnBranch = " AND r.branch_id = ?"
	}
	consumedSql := `
SELECT t.item_name, SUM(t.quantity) AS consumed
FROM (
    SELECT d.item_name, d.quantity
    FROM sale_order_details d
    JOIN sale_orders s ON s.id = d.sale_order_id
    WHERE s.order_date <= ?` + saleBranch + `
    UNION ALL
    SELECT d.item_name, d.quantity
    FROM return_order_details d
    JOIN return_orders r ON r.id = d.return_order_id
    WHERE r.return_type = 'purchase' AND r.return_date <= ?` + returnBranch + `
    UNION ALL
    SELECT d.item_name, -d.quantity
    FROM return_order_details d
    JOIN return_orders r ON r.id = d.return_order_id
    WHERE r.return_type = 'sale' AND r.return_date <= ?` + returnBranch + `
) t
GROUP BY t.item_name`
	consumedArgs := []interface{}{asOf, asOf, asOf}
	if filter.BranchId != nil {
		consumedArgs = []interface{}{asOf, *filter.BranchId, asOf, *filter.BranchId, asOf, *filter.BranchId}
	}
	if filter.ItemName != "" {
		consumedSql += " HAVING t.item_name = ?"
		consumedArgs = append(consumedArgs, filter.ItemName)
	}

	var consumptions []itemConsumption
	if err := db.WithContext(ctx).Raw(consumedSql, consumedArgs...).Scan(&consumptions).Error; err != nil {
		return nil, err
	}
	consumed := make(map[string]decimal.Decimal, len(consumptions))
	for _, c := range consumptions {
		consumed[c.ItemName] = c.Consumed
	}

	rows := computeFifoAging(lots, consumed, asOf)

	resp := &StockAgingResponse{Rows: rows, AsOfDate: asOf}
	for _, r := range rows {
		resp.TotalQty = resp.TotalQty.Add(r.TotalQty)
		resp.TotalValueKwd = resp.TotalValueKwd.Add(r.TotalValueKwd)
	}
	return resp, nil
}

// computeFifoAging walks each item's lots oldest-first, keeping a running
// cumulative-purchased total. A lot's surviving quantity is
// min(lot qty, cumulative after the lot - consumed), floored at zero, so
// consumption drains the oldest lots first. Lots must arrive grouped by
// item and date-ascending within each item.
func computeFifoAging(lots []purchaseLot, consumed map[string]decimal.Decimal, asOf time.Time) []*StockAgingRow {
	byItem := map[string]*StockAgingRow{}
	var order []string
	cumulative := map[string]decimal.Decimal{}

	for _, lot := range lots {
		if lot.Quantity.Sign() <= 0 {
			continue
		}
		row, ok := byItem[lot.ItemName]
		if !ok {
			row = &StockAgingRow{ItemName: lot.ItemName}
			byItem[lot.ItemName] = row
			order = append(order, lot.ItemName)
		}

		cumAfter := cumulative[lot.ItemName].Add(lot.Quantity)
		cumulative[lot.ItemName] = cumAfter

		remaining := cumAfter.Sub(consumed[lot.ItemName])
		if remaining.GreaterThan(lot.Quantity) {
			remaining = lot.Quantity
		}
		if remaining.Sign() <= 0 {
			continue
		}

		value := remaining.Mul(lot.PriceKwd)
		ageDays := int(asOf.Sub(lot.OrderDate).Hours() / 24)
		switch {
		case ageDays <= 30:
			row.Qty0To30 = row.Qty0To30.Add(remaining)
			row.Value0To30 = row.Value0To30.Add(value)
		case ageDays <= 60:
			row.Qty31To60 = row.Qty31To60.Add(remaining)
			row.Value31To60 = row.Value31To60.Add(value)
		case ageDays <= 90:
			row.Qty61To90 = row.Qty61To90.Add(remaining)
			row.Value61To90 = row.Value61To90.Add(value)
		default:
			row.QtyOver90 = row.QtyOver90.Add(remaining)
			row.ValueOver90 = row.ValueOver90.Add(value)
		}
		row.TotalQty = row.TotalQty.Add(remaining)
		row.TotalValueKwd = row.TotalValueKwd.Add(value)
	}

	rows := make([]*StockAgingRow, 0, len(order))
	for _, name := range order {
		if byItem[name].TotalQty.Sign() > 0 {
			rows = append(rows, byItem[name])
		}
	}
	return rows
}
