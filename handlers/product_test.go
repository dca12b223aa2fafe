package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestGetProductsMerchantScoped(t *testing.T) {
	db := freshDB()
	router := setupProductRouter(db)

	user, token := seedMerchantUser(db, "catalog@test.com")
	other, _ := seedMerchantUser(db, "other@test.com")

	seedProduct(db, *user.MerchantID, "Green Tea", "TEA-001", 499)
	seedProduct(db, *user.MerchantID, "Black Tea", "TEA-002", 599)
	seedProduct(db, *other.MerchantID, "Competitor Tea", "TEA-900", 100)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/products", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["total"].(float64) != 2 {
		t.Errorf("expected 2 products, got %v", resp["total"])
	}
}

func TestGetProductNotFoundAcrossMerchants(t *testing.T) {
	db := freshDB()
	router := setupProductRouter(db)

	_, token := seedMerchantUser(db, "mine@test.com")
	other, _ := seedMerchantUser(db, "theirs@test.com")
	theirProduct := seedProduct(db, *other.MerchantID, "Hidden", "HID-1", 100)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/products/"+theirProduct.ID.String(), nil, token))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestExportProductsXLSX(t *testing.T) {
	db := freshDB()
	router := setupProductRouter(db)

	user, token := seedMerchantUser(db, "export@test.com")
	seedProduct(db, *user.MerchantID, "Oolong", "OOL-1", 1250)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/products/export", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("export is not a readable workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	if rows[0][1] != "title" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "Oolong" || rows[1][2] != "OOL-1" {
		t.Errorf("unexpected export row: %v", rows[1])
	}
}
