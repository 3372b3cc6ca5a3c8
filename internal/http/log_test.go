package handlers_test

import (
	"net/url"
	"testing"
)

func TestAuthLogs(t *testing.T) {
	env := newTestEnv(t, nil)

	entries := captureLogs(t, func() {
		env.post(t, "/login", "", url.Values{"email": {"admin@vitrina.test"}, "password": {"Wrong-pass1"}})
	})
	e, ok := findLog(entries, "auth.login.fail")
	if !ok || e.Level != "warn" {
		t.Fatalf("expected auth.login.fail warn, got %+v", entries)
	}
	if e.Fields["reason"] != "bad_credentials" {
		t.Fatalf("unexpected reason %v", e.Fields["reason"])
	}
	for _, v := range e.Fields {
		if v == "Wrong-pass1" {
			t.Fatal("password leaked into logs")
		}
	}

	entries = captureLogs(t, func() {
		env.post(t, "/login", "", url.Values{"email": {"admin@vitrina.test"}, "password": {"Passw0rd!"}})
	})
	e, ok = findLog(entries, "auth.login.success")
	if !ok || e.Level != "audit" || e.OperatorID != "u-admin" {
		t.Fatalf("expected audit login success for u-admin, got %+v", entries)
	}
}

func TestAccessDeniedLogs(t *testing.T) {
	env := newTestEnv(t, nil)
	entries := captureLogs(t, func() {
		env.post(t, "/productos/p-1/eliminar", "sid-caja", nil)
	})
	e, ok := findLog(entries, "access.denied.admin")
	if !ok {
		t.Fatalf("expected access.denied.admin log")
	}
	if e.OperatorID != "u-caja" || e.Fields["role"] != "CASHIER" {
		t.Fatalf("denial not attributed to cashier: %+v", e)
	}
}

func TestCatalogAndSaleAuditLogs(t *testing.T) {
	env := newTestEnv(t, nil)
	entries := captureLogs(t, func() {
		env.post(t, "/productos/p-1", "sid-admin", url.Values{"name": {"Camisa"}, "description": {"Oxford"}, "categoryId": {"c-1"}, "price": {"10"}, "stock": {"3"}})
		env.post(t, "/ventas/cart", "sid-admin", url.Values{"detailId": {"d-2"}})
		env.post(t, "/ventas", "sid-admin", url.Values{"confirm": {"yes"}})
	})
	e, ok := findLog(entries, "product.save")
	if !ok || e.Level != "audit" || e.Fields["product_id"] != "p-1" {
		t.Fatalf("expected product.save audit, got %+v", entries)
	}
	e, ok = findLog(entries, "sale.register")
	if !ok || e.Level != "audit" || e.Fields["total"] != "5.00" {
		t.Fatalf("expected sale.register audit with total, got %+v", entries)
	}
}

func TestValidationFailuresLogged(t *testing.T) {
	env := newTestEnv(t, nil)
	entries := captureLogs(t, func() {
		env.get(t, "/productos?q=%3Cscript%3E", "sid-caja")
	})
	e, ok := findLog(entries, "validation.fail")
	if !ok || e.Fields["field"] != "q" {
		t.Fatalf("expected validation.fail for q, got %+v", entries)
	}
}
