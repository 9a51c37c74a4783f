package models

import "testing"

func TestStringListValue_NilWritesEmptyArray(t *testing.T) {
	v, err := StringList(nil).Value()
	if err != nil {
		t.Fatal(err)
	}
	// a JSON column rejects SQL NULL, so nil must serialize as []
	if v != "[]" {
		t.Errorf("got %v, want []", v)
	}
}

func TestIntListScan_AcceptsBytesAndString(t *testing.T) {
	var fromBytes IntList
	if err := fromBytes.Scan([]byte("[1,2,3]")); err != nil {
		t.Fatal(err)
	}
	var fromString IntList
	if err := fromString.Scan("[1,2,3]"); err != nil {
		t.Fatal(err)
	}
	if len(fromBytes) != 3 || len(fromString) != 3 {
		t.Errorf("scan lost elements: %v %v", fromBytes, fromString)
	}

	var l IntList
	if err := l.Scan(42); err == nil {
		t.Error("scanning a non-json driver value should error")
	}
}
