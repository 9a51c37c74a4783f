package models

import (
	"log"

	"github.com/kwtradetech/trading_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Branch{}, &Party{}, &Item{},
		&PurchaseOrder{}, &PurchaseOrderDetail{},
		&SaleOrder{}, &SaleOrderDetail{},
		&ReturnOrder{}, &ReturnOrderDetail{},
		&InventoryAdjustment{},
		&ImeiUnit{}, &ImeiEvent{},
		&LandedCostVoucher{}, &LandedCostVoucherOrder{}, &LandedCostLineItem{},
		&PartySettlement{},
		&Payment{}, &Expense{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
