package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/kwtradetech/trading_backend/models"
	"github.com/kwtradetech/trading_backend/models/reports"
	"github.com/kwtradetech/trading_backend/utils"
)

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// bindError renders a JSON-bind failure, field by field when the error
// carries validator details.
func bindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(validationErrors)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// respond maps the models-layer conventions onto HTTP: errors are 400s
// (validation dominates), absent probes are 404s.
func respond(c *gin.Context, result interface{}, err error) {
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- master data ---

func createItemHandler(c *gin.Context) {
	var input models.NewItem
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	item, err := models.CreateItem(c.Request.Context(), &input)
	respond(c, item, err)
}

func listItemsHandler(c *gin.Context) {
	var name *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	items, err := models.GetItems(c.Request.Context(), name)
	respond(c, items, err)
}

func createPartyHandler(c *gin.Context) {
	var input models.NewParty
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	party, err := models.CreateParty(c.Request.Context(), &input)
	respond(c, party, err)
}

func listPartiesHandler(c *gin.Context) {
	var partyType *models.PartyType
	if v := c.Query("type"); v != "" {
		t := models.PartyType(v)
		partyType = &t
	}
	parties, err := models.GetParties(c.Request.Context(), partyType)
	respond(c, parties, err)
}

func createBranchHandler(c *gin.Context) {
	var input models.NewBranch
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	branch, err := models.CreateBranch(c.Request.Context(), &input)
	respond(c, branch, err)
}

func listBranchesHandler(c *gin.Context) {
	branches, err := models.GetBranches(c.Request.Context())
	respond(c, branches, err)
}

// --- transactional documents ---

func createPurchaseOrderHandler(c *gin.Context) {
	var input models.NewPurchaseOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	order, err := models.CreatePurchaseOrder(c.Request.Context(), &input)
	respond(c, order, err)
}

func getPurchaseOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.GetPurchaseOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func deletePurchaseOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.DeletePurchaseOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func createSaleOrderHandler(c *gin.Context) {
	var input models.NewSaleOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	order, err := models.CreateSaleOrder(c.Request.Context(), &input)
	respond(c, order, err)
}

func getSaleOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.GetSaleOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func deleteSaleOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.DeleteSaleOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func createReturnOrderHandler(c *gin.Context) {
	var input models.NewReturnOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	order, err := models.CreateReturnOrder(c.Request.Context(), &input)
	respond(c, order, err)
}

func getReturnOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.GetReturnOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func deleteReturnOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.DeleteReturnOrder(c.Request.Context(), id)
	respond(c, order, err)
}

func createInventoryAdjustmentHandler(c *gin.Context) {
	var input models.NewInventoryAdjustment
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	adj, err := models.CreateInventoryAdjustment(c.Request.Context(), &input)
	respond(c, adj, err)
}

func getInventoryAdjustmentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	adj, err := models.GetInventoryAdjustment(c.Request.Context(), id)
	respond(c, adj, err)
}

func deleteInventoryAdjustmentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	adj, err := models.DeleteInventoryAdjustment(c.Request.Context(), id)
	respond(c, adj, err)
}

// --- stock reports ---

func stockBalanceHandler(c *gin.Context) {
	records, err := reports.GetStockBalance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func lowStockHandler(c *gin.Context) {
	records, err := reports.GetLowStockItems(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func parseAgingFilter(c *gin.Context) (reports.StockAgingFilter, error) {
	filter := reports.StockAgingFilter{ItemName: c.Query("item")}
	if v := c.Query("branch_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.BranchId = &id
	}
	if v := c.Query("as_of"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, err
		}
		filter.AsOfDate = &d
	}
	return filter, nil
}

func stockAgingHandler(c *gin.Context) {
	filter, err := parseAgingFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, err := reports.GetStockAging(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- imei tracker ---

func searchImeisHandler(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	results, err := models.SearchImeis(c.Request.Context(), query)
	respond(c, results, err)
}

func getImeiHandler(c *gin.Context) {
	detail, err := models.GetImeiByNumber(c.Request.Context(), c.Param("imei"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "imei not found"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

func getImeiHistoryHandler(c *gin.Context) {
	detail, err := models.GetImeiByNumber(c.Request.Context(), c.Param("imei"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "imei not found"})
		return
	}
	events, err := models.GetImeiHistory(c.Request.Context(), detail.ID)
	respond(c, events, err)
}

// --- landed cost vouchers ---

func createVoucherHandler(c *gin.Context) {
	var input models.NewLandedCostVoucher
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	voucher, err := models.CreateLandedCostVoucher(c.Request.Context(), &input)
	respond(c, voucher, err)
}

func getVoucherHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	voucher, err := models.GetLandedCostVoucher(c.Request.Context(), id)
	respond(c, voucher, err)
}

func updateVoucherHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewLandedCostVoucher
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	voucher, err := models.UpdateLandedCostVoucher(c.Request.Context(), id, &input)
	respond(c, voucher, err)
}

func deleteVoucherHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	voucher, err := models.DeleteLandedCostVoucher(c.Request.Context(), id)
	respond(c, voucher, err)
}

func pendingPayablesHandler(c *gin.Context) {
	payables, err := models.GetPendingLandedCostPayables(c.Request.Context())
	respond(c, payables, err)
}

// payVoucherLaneHandler flips one payable lane to paid. Already-paid lanes
// are a no-op, so clients can retry safely.
func payVoucherLaneHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var body struct {
		PaymentId int `json:"payment_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}

	var err error
	switch models.PayableLaneType(c.Param("lane")) {
	case models.LaneHkDxbFreight:
		err = models.MarkLandedCostPaid(c.Request.Context(), id, body.PaymentId)
	case models.LaneDxbKwiFreight:
		err = models.MarkDxbKwiPaid(c.Request.Context(), id, body.PaymentId)
	case models.LanePartnerProfit:
		err = models.MarkPartnerProfitPaid(c.Request.Context(), id, body.PaymentId)
	case models.LanePacking:
		err = models.MarkPackingPaid(c.Request.Context(), id, body.PaymentId)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payable lane"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- party settlements ---

func listSettlementsHandler(c *gin.Context) {
	var status *models.PayableStatus
	if v := c.Query("status"); v != "" {
		s := models.PayableStatus(v)
		status = &s
	}
	settlements, err := models.GetPartySettlements(c.Request.Context(), status)
	respond(c, settlements, err)
}

func pendingSettlementsByPartyHandler(c *gin.Context) {
	lane := models.SettlementLane(c.Query("lane"))
	switch lane {
	case models.SettlementLanePartner, models.SettlementLanePacking, models.SettlementLaneLogistic:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "lane must be partner, packing or logistic"})
		return
	}
	groups, err := models.GetPendingSettlementsByParty(c.Request.Context(), lane)
	respond(c, groups, err)
}

func createSettlementHandler(c *gin.Context) {
	var input models.NewPartySettlement
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	settlement, err := models.CreatePartySettlement(c.Request.Context(), &input)
	respond(c, settlement, err)
}

func getSettlementHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	settlement, err := models.GetPartySettlement(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if settlement == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "settlement not found"})
		return
	}
	c.JSON(http.StatusOK, settlement)
}
