package reports

import (
	"context"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/shopspring/decimal"
)

type StockBalanceResponse struct {
	ItemName         string          `json:"item_name"`
	Purchased        decimal.Decimal `json:"purchased"`
	Sold             decimal.Decimal `json:"sold"`
	SaleReturned     decimal.Decimal `json:"sale_returned"`
	PurchaseReturned decimal.Decimal `json:"purchase_returned"`
	OpeningStock     decimal.Decimal `json:"opening_stock"`
	Balance          decimal.Decimal `json:"balance"`
}

// The spine is the union of item names across the four ledgers, so an item
// that only ever appears in one ledger still gets a row; every absent side
// coalesces to zero. MySQL has no FULL OUTER JOIN, hence spine + LEFT JOINs.
const stockBalanceSql = `
SELECT
    spine.item_name,
    COALESCE(p.qty, 0) AS purchased,
    COALESCE(s.qty, 0) AS sold,
    COALESCE(sr.qty, 0) AS sale_returned,
    COALESCE(pr.qty, 0) AS purchase_returned,
    COALESCE(o.qty, 0) AS opening_stock,
    COALESCE(o.qty, 0) + COALESCE(p.qty, 0) + COALESCE(sr.qty, 0)
        - COALESCE(s.qty, 0) - COALESCE(pr.qty, 0) AS balance
FROM
    (SELECT item_name FROM purchase_order_details
     UNION SELECT item_name FROM sale_order_details
     UNION SELECT item_name FROM return_order_details
     UNION SELECT item_name FROM inventory_adjustments) AS spine
        LEFT JOIN
    (SELECT item_name, SUM(quantity) AS qty
     FROM purchase_order_details GROUP BY item_name) p ON p.item_name = spine.item_name
        LEFT JOIN
    (SELECT item_name, SUM(quantity) AS qty
     FROM sale_order_details GROUP BY item_name) s ON s.item_name = spine.item_name
        LEFT JOIN
    (SELECT d.item_name, SUM(d.quantity) AS qty
     FROM return_order_details d
     JOIN return_orders r ON r.id = d.return_order_id
     WHERE r.return_type = 'sale' GROUP BY d.item_name) sr ON sr.item_name = spine.item_name
        LEFT JOIN
    (SELECT d.item_name, SUM(d.quantity) AS qty
     FROM return_order_details d
     JOIN return_orders r ON r.id = d.return_order_id
     WHERE r.return_type = 'purchase' GROUP BY d.item_name) pr ON pr.item_name = spine.item_name
        LEFT JOIN
    (SELECT item_name, SUM(quantity) AS qty
     FROM inventory_adjustments GROUP BY item_name) o ON o.item_name = spine.item_name
`

// GetStockBalance aggregates the four ledgers per item. Oversold items come
// back with a negative balance; rejecting them is a sales-approval decision,
// not this report's.
func GetStockBalance(ctx context.Context) ([]*StockBalanceResponse, error) {
	started := time.Now()
	defer logSlowReport(ctx, "stock_balance", started, nil)

	const cacheKey = "report:stockBalance"
	var records []*StockBalanceResponse
	if reportCacheEnabled() {
		if hit, err := cacheGet(cacheKey, &records); err == nil && hit {
			return records, nil
		}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(stockBalanceSql + " ORDER BY spine.item_name").Scan(&records).Error; err != nil {
		return nil, err
	}

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, records, reportCacheTTL())
	}
	return records, nil
}

type LowStockResponse struct {
	StockBalanceResponse
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	Deficit       decimal.Decimal `json:"deficit"`
}

// GetLowStockItems re-runs the balance aggregation restricted to items with
// a threshold, keeping those at or under it, worst deficit first.
func GetLowStockItems(ctx context.Context) ([]*LowStockResponse, error) {
	started := time.Now()
	defer logSlowReport(ctx, "low_stock", started, nil)

	sql := `
SELECT
    b.*,
    i.min_stock_level,
    i.min_stock_level - b.balance AS deficit
FROM
    (` + stockBalanceSql + `) AS b
        JOIN
    items i ON i.name = b.item_name
WHERE
    i.min_stock_level > 0 AND b.balance <= i.min_stock_level
ORDER BY deficit DESC
`

	db := config.GetDB()
	var records []*LowStockResponse
	if err := db.WithContext(ctx).Raw(sql).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
