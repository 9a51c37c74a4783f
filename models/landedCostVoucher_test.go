package models

import (
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	dup := &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry 'LCV-0001' for key 'voucher_number'"}
	if !isDuplicateKeyErr(dup) {
		t.Error("mysql 1062 should classify as duplicate key")
	}
	if !isDuplicateKeyErr(fmt.Errorf("create voucher: %w", dup)) {
		t.Error("wrapped 1062 should classify as duplicate key")
	}

	fk := &mysqlDriver.MySQLError{Number: 1452, Message: "foreign key constraint fails"}
	if isDuplicateKeyErr(fk) {
		t.Error("mysql 1452 is not a duplicate key")
	}
	if isDuplicateKeyErr(errors.New("Duplicate entry")) {
		t.Error("plain error should not classify as duplicate key")
	}
	if isDuplicateKeyErr(nil) {
		t.Error("nil error should not classify as duplicate key")
	}
}
