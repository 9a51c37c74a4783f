package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/models"
	"github.com/kwtradetech/trading_backend/models/reports"
	"github.com/kwtradetech/trading_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// setupIntegrationEnv boots MySQL and Redis containers, points the config
// package at them and runs migrations. Skips unless INTEGRATION_TESTS=1.
func setupIntegrationEnv(t *testing.T) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "trading_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()
}

type testFixtures struct {
	branch   *models.Branch
	supplier *models.Party
	customer *models.Party
}

func setupMasterData(t *testing.T, ctx context.Context) testFixtures {
	t.Helper()
	branch, err := models.CreateBranch(ctx, &models.NewBranch{Name: "Kuwait City", City: "Kuwait City"})
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	supplier, err := models.CreateParty(ctx, &models.NewParty{Name: "HK Supplier", Type: models.PartyTypeSupplier})
	if err != nil {
		t.Fatalf("CreateParty supplier: %v", err)
	}
	customer, err := models.CreateParty(ctx, &models.NewParty{Name: "Walk-in Customer", Type: models.PartyTypeCustomer})
	if err != nil {
		t.Fatalf("CreateParty customer: %v", err)
	}
	return testFixtures{branch: branch, supplier: supplier, customer: customer}
}

func balanceFor(t *testing.T, ctx context.Context, itemName string) *reports.StockBalanceResponse {
	t.Helper()
	records, err := reports.GetStockBalance(ctx)
	if err != nil {
		t.Fatalf("GetStockBalance: %v", err)
	}
	for _, r := range records {
		if r.ItemName == itemName {
			return r
		}
	}
	return nil
}

// Balance must reconcile across all four ledgers: purchase 10, sell 3,
// sale-return 1 leaves 8 on hand.
func TestStockBalance_AcrossFourLedgers(t *testing.T) {
	setupIntegrationEnv(t)
	ctx := context.Background()
	fx := setupMasterData(t, ctx)

	item, err := models.CreateItem(ctx, &models.NewItem{
		Name:          "iPhone 15 Pro",
		MinStockLevel: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	orderDate := time.Now().AddDate(0, 0, -40)
	if _, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		SupplierPartyId: fx.supplier.ID,
		BranchId:        fx.branch.ID,
		OrderDate:       orderDate,
		Details: []models.NewPurchaseOrderDetail{
			{ItemName: item.Name, Quantity: decimal.NewFromInt(10), PriceKwd: decimal.NewFromInt(250)},
		},
	}); err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}

	if _, err := models.CreateSaleOrder(ctx, &models.NewSaleOrder{
		CustomerPartyId: fx.customer.ID,
		BranchId:        fx.branch.ID,
		OrderDate:       time.Now().AddDate(0, 0, -10),
		Details: []models.NewSaleOrderDetail{
			{ItemName: item.Name, Quantity: decimal.NewFromInt(3), PriceKwd: decimal.NewFromInt(300)},
		},
	}); err != nil {
		t.Fatalf("CreateSaleOrder: %v", err)
	}

	if _, err := models.CreateReturnOrder(ctx, &models.NewReturnOrder{
		ReturnType: models.ReturnTypeSale,
		PartyId:    fx.customer.ID,
		BranchId:   fx.branch.ID,
		ReturnDate: time.Now().AddDate(0, 0, -5),
		Details: []models.NewReturnOrderDetail{
			{ItemName: item.Name, Quantity: decimal.NewFromInt(1), PriceKwd: decimal.NewFromInt(300)},
		},
	}); err != nil {
		t.Fatalf("CreateReturnOrder: %v", err)
	}

	row := balanceFor(t, ctx, item.Name)
	if row == nil {
		t.Fatal("item missing from stock balance")
	}
	if !row.Balance.Equal(decimal.NewFromInt(8)) {
		t.Errorf("balance = %s, want 8", row.Balance)
	}
	if !row.Purchased.Equal(decimal.NewFromInt(10)) || !row.Sold.Equal(decimal.NewFromInt(3)) || !row.SaleReturned.Equal(decimal.NewFromInt(1)) {
		t.Errorf("ledger sides wrong: %+v", row)
	}

	// below min stock of 10, so it must be flagged
	low, err := reports.GetLowStockItems(ctx)
	if err != nil {
		t.Fatalf("GetLowStockItems: %v", err)
	}
	found := false
	for _, r := range low {
		if r.ItemName == item.Name {
			found = true
			if !r.Deficit.Equal(decimal.NewFromInt(2)) {
				t.Errorf("deficit = %s, want 2", r.Deficit)
			}
		}
	}
	if !found {
		t.Error("item below threshold missing from low stock report")
	}

	// aging: one lot 40 days old with 8 remaining
	aging, err := reports.GetStockAging(ctx, reports.StockAgingFilter{ItemName: item.Name})
	if err != nil {
		t.Fatalf("GetStockAging: %v", err)
	}
	if len(aging.Rows) != 1 {
		t.Fatalf("expected 1 aging row, got %d", len(aging.Rows))
	}
	if !aging.Rows[0].Qty31To60.Equal(decimal.NewFromInt(8)) {
		t.Errorf("aging qty 31-60 = %s, want 8", aging.Rows[0].Qty31To60)
	}
	if !aging.TotalValueKwd.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("aging value = %s, want 2000 (8 x 250)", aging.TotalValueKwd)
	}
}

// Selling an item with no purchase history yields a negative balance; the
// ledger records it rather than rejecting the sale.
func TestStockBalance_NegativeBalanceAllowed(t *testing.T) {
	setupIntegrationEnv(t)
	ctx := context.Background()
	fx := setupMasterData(t, ctx)

	if _, err := models.CreateSaleOrder(ctx, &models.NewSaleOrder{
		CustomerPartyId: fx.customer.ID,
		BranchId:        fx.branch.ID,
		OrderDate:       time.Now(),
		Details: []models.NewSaleOrderDetail{
			{ItemName: "Legacy Phone", Quantity: decimal.NewFromInt(2), PriceKwd: decimal.NewFromInt(100)},
		},
	}); err != nil {
		t.Fatalf("CreateSaleOrder: %v", err)
	}

	row := balanceFor(t, ctx, "Legacy Phone")
	if row == nil {
		t.Fatal("sold-only item missing from stock balance")
	}
	if !row.Balance.Equal(decimal.NewFromInt(-2)) {
		t.Errorf("balance = %s, want -2", row.Balance)
	}
}

func TestImeiLifecycle_PurchaseSellReturn(t *testing.T) {
	setupIntegrationEnv(t)
	ctx := context.Background()
	fx := setupMasterData(t, ctx)

	const imei = "356938035643809"

	if _, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		SupplierPartyId: fx.supplier.ID,
		BranchId:        fx.branch.ID,
		OrderDate:       time.Now().AddDate(0, 0, -30),
		Details: []models.NewPurchaseOrderDetail{
			{ItemName: "Galaxy S24", Quantity: decimal.NewFromInt(1), PriceKwd: decimal.NewFromInt(180), ImeiNumbers: []string{imei}},
		},
	}); err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}

	unit, err := models.GetImeiByNumber(ctx, imei)
	if err != nil {
		t.Fatalf("GetImeiByNumber: %v", err)
	}
	if unit == nil {
		t.Fatal("unit not created on purchase")
	}
	if unit.Status != models.ImeiStatusInStock {
		t.Errorf("status after purchase = %s, want in_stock", unit.Status)
	}
	if unit.CurrentBranchId == nil || *unit.CurrentBranchId != fx.branch.ID {
		t.Error("unit should sit in the purchasing branch")
	}

	// re-import of the same purchase line must not duplicate the unit
	db := config.GetDB()
	tx := db.Begin()
	err = models.ProcessImeisFromPurchase(tx, models.ImeiPurchaseInput{
		Imeis:           []string{imei},
		ItemName:        "Galaxy S24",
		PurchaseOrderId: *unit.PurchaseOrderId,
		Date:            time.Now(),
		BranchId:        fx.branch.ID,
	})
	if err != nil {
		tx.Rollback()
		t.Fatalf("re-import: %v", err)
	}
	tx.Commit()
	var unitCount int64
	db.Model(&models.ImeiUnit{}).Where("imei = ?", imei).Count(&unitCount)
	if unitCount != 1 {
		t.Fatalf("re-import duplicated the unit: count %d", unitCount)
	}

	if _, err := models.CreateSaleOrder(ctx, &models.NewSaleOrder{
		CustomerPartyId: fx.customer.ID,
		BranchId:        fx.branch.ID,
		OrderDate:       time.Now().AddDate(0, 0, -10),
		Details: []models.NewSaleOrderDetail{
			{ItemName: "Galaxy S24", Quantity: decimal.NewFromInt(1), PriceKwd: decimal.NewFromInt(210), ImeiNumbers: []string{imei}},
		},
	}); err != nil {
		t.Fatalf("CreateSaleOrder: %v", err)
	}

	unit, _ = models.GetImeiByNumber(ctx, imei)
	if unit.Status != models.ImeiStatusSold {
		t.Errorf("status after sale = %s, want sold", unit.Status)
	}
	if unit.CurrentBranchId != nil {
		t.Error("sold unit must leave branch stock")
	}

	if _, err := models.CreateReturnOrder(ctx, &models.NewReturnOrder{
		ReturnType: models.ReturnTypeSale,
		PartyId:    fx.customer.ID,
		BranchId:   fx.branch.ID,
		ReturnDate: time.Now().AddDate(0, 0, -2),
		Details: []models.NewReturnOrderDetail{
			{ItemName: "Galaxy S24", Quantity: decimal.NewFromInt(1), ImeiNumbers: []string{imei}},
		},
	}); err != nil {
		t.Fatalf("CreateReturnOrder: %v", err)
	}

	unit, _ = models.GetImeiByNumber(ctx, imei)
	if unit.Status != models.ImeiStatusReturned {
		t.Errorf("status after sale return = %s, want returned", unit.Status)
	}
	if unit.CurrentBranchId == nil || *unit.CurrentBranchId != fx.branch.ID {
		t.Error("sale-returned unit must re-enter branch stock")
	}

	history, err := models.GetImeiHistory(ctx, unit.ID)
	if err != nil {
		t.Fatalf("GetImeiHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 events, got %d", len(history))
	}
	wantOrder := []models.ImeiEventType{models.ImeiEventPurchased, models.ImeiEventSold, models.ImeiEventSaleReturned}
	for i, ev := range history {
		if ev.EventType != wantOrder[i] {
			t.Errorf("event %d = %s, want %s", i, ev.EventType, wantOrder[i])
		}
		if i > 0 && ev.EventDate.Before(history[i-1].EventDate) {
			t.Errorf("event dates not monotonic at index %d", i)
		}
	}
}

// A unit sold without purchase history is created directly as sold, and the
// reconciler can repair a projection someone corrupted by hand.
func TestImeiReconcile_EventLogIsAuthoritative(t *testing.T) {
	setupIntegrationEnv(t)
	ctx := context.Background()
	fx := setupMasterData(t, ctx)
	logger := logrus.New()

	const imei = "490154203237518"
	if _, err := models.CreateSaleOrder(ctx, &models.NewSaleOrder{
		CustomerPartyId: fx.customer.ID,
		BranchId:        fx.branch.ID,
		OrderDate:       time.Now(),
		Details: []models.NewSaleOrderDetail{
			{ItemName: "Legacy Unit", Quantity: decimal.NewFromInt(1), PriceKwd: decimal.NewFromInt(90), ImeiNumbers: []string{imei}},
		},
	}); err != nil {
		t.Fatalf("CreateSaleOrder: %v", err)
	}

	unit, _ := models.GetImeiByNumber(ctx, imei)
	if unit == nil || unit.Status != models.ImeiStatusSold {
		t.Fatalf("legacy sale should create the unit as sold, got %+v", unit)
	}

	clean, err := workflow.ReconcileImeiProjections(ctx, logger, false)
	if err != nil {
		t.Fatalf("ReconcileImeiProjections: %v", err)
	}
	if len(clean.Divergences) != 0 {
		t.Fatalf("fresh data should not diverge: %+v", clean.Divergences)
	}

	// corrupt the projection behind the event log's back
	db := config.GetDB()
	if err := db.Model(&models.ImeiUnit{}).Where("id = ?", unit.ID).
		Update("status", models.ImeiStatusInStock).Error; err != nil {
		t.Fatalf("corrupt projection: %v", err)
	}

	report, err := workflow.ReconcileImeiProjections(ctx, logger, false)
	if err != nil {
		t.Fatalf("reconcile report: %v", err)
	}
	if len(report.Divergences) != 1 || report.Repaired != 0 {
		t.Fatalf("expected 1 reported divergence, got %+v", report)
	}

	fixed, err := workflow.ReconcileImeiProjections(ctx, logger, true)
	if err != nil {
		t.Fatalf("reconcile fix: %v", err)
	}
	if fixed.Repaired != 1 {
		t.Fatalf("expected 1 repair, got %+v", fixed)
	}

	unit, _ = models.GetImeiByNumber(ctx, imei)
	if unit.Status != models.ImeiStatusSold {
		t.Errorf("repair should restore sold, got %s", unit.Status)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("trading-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("trading-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=trading_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}

func TestStockAging_BranchScopedConsumption(t *testing.T) {
	setupIntegrationEnv(t)
	ctx := context.Background()
	fx := setupMasterData(t, ctx)

	other, err := models.CreateBranch(ctx, &models.NewBranch{Name: "Hawally", City: "Hawally"})
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	item, err := models.CreateItem(ctx, &models.NewItem{Name: "Galaxy S25"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if _, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		SupplierPartyId: fx.supplier.ID,
		BranchId:        fx.branch.ID,
		OrderDate:       time.Now().AddDate(0, 0, -40),
		Details: []models.NewPurchaseOrderDetail{
			{ItemName: item.Name, Quantity: decimal.NewFromInt(10), PriceKwd: decimal.NewFromInt(200)},
		},
	}); err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}

	// the other branch sells four units it never purchased here
	if _, err := models.CreateSaleOrder(ctx, &models.NewSaleOrder{
		CustomerPartyId: fx.customer.ID,
		BranchId:        other.ID,
		OrderDate:       time.Now().AddDate(0, 0, -5),
		Details: []models.NewSaleOrderDetail{
			{ItemName: item.Name, Quantity: decimal.NewFromInt(4), PriceKwd: decimal.NewFromInt(260)},
		},
	}); err != nil {
		t.Fatalf("CreateSaleOrder: %v", err)
	}

	// scoped to the purchasing branch, the other branch's sale must not
	// eat into these lots
	scoped, err := reports.GetStockAging(ctx, reports.StockAgingFilter{ItemName: item.Name, BranchId: &fx.branch.ID})
	if err != nil {
		t.Fatalf("GetStockAging scoped: %v", err)
	}
	if len(scoped.Rows) != 1 || !scoped.Rows[0].TotalQty.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("branch-scoped aging = %+v, want 10 remaining", scoped.Rows)
	}

	// the selling branch holds no lots at all
	empty, err := reports.GetStockAging(ctx, reports.StockAgingFilter{ItemName: item.Name, BranchId: &other.ID})
	if err != nil {
		t.Fatalf("GetStockAging other: %v", err)
	}
	if len(empty.Rows) != 0 {
		t.Fatalf("selling branch should have no lots, got %+v", empty.Rows)
	}

	// unfiltered, the sale consumes from the oldest lot as usual
	global, err := reports.GetStockAging(ctx, reports.StockAgingFilter{ItemName: item.Name})
	if err != nil {
		t.Fatalf("GetStockAging global: %v", err)
	}
	if len(global.Rows) != 1 || !global.Rows[0].TotalQty.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("global aging = %+v, want 6 remaining", global.Rows)
	}
}
