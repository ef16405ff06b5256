package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erazemk/inventura/internal/auth"
	"github.com/erazemk/inventura/internal/config"
	"github.com/erazemk/inventura/internal/db"
	"github.com/erazemk/inventura/internal/lock"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

const (
	testJWTSecret = "test-secret"
	testPassword  = "password"
	testOrigin    = "http://localhost:3000"
)

func testConfig() *config.Config {
	return &config.Config{
		PhoneRegion:    "RU",
		LocationUpdate: model.LocationUpdateLedger,
		CORSOrigins:    []string{testOrigin},
		TokenTTL:       time.Hour,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	cfg := testConfig()
	tokens, err := auth.NewTokens(testJWTSecret, cfg.TokenTTL)
	if err != nil {
		t.Fatalf("creating token issuer: %v", err)
	}
	router := NewRouter(database, cfg, tokens, lock.NewLocal())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, database
}

func createTestUser(t *testing.T, database *sql.DB, username, role string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user, err := store.CreateUser(context.Background(), database, username, hash, role)
	if err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return user
}

func login(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": testPassword})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}
	return token
}

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	server, database := newTestServer(t)
	createTestUser(t, database, "admin", model.RoleAdmin)
	return server, login(t, server, "admin")
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// call performs an authenticated JSON request, checks the status and decodes
// the response into out when out is non-nil.
func call(t *testing.T, method, url, token string, body any, want int, out any) {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, url, want, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, url, err)
		}
	}
}

type refs struct {
	vendor    model.Vendor
	warehouse model.Warehouse
	employee  model.Employee
}

func seedRefs(t *testing.T, url, token string) refs {
	t.Helper()
	var r refs
	call(t, "POST", url+"/api/companies", token, map[string]string{"code": "WWP", "name": "World Wide Products"}, http.StatusCreated, nil)
	call(t, "POST", url+"/api/device-types", token, map[string]string{"code": "01", "name": "Monitor"}, http.StatusCreated, nil)
	call(t, "POST", url+"/api/device-types", token, map[string]string{"code": "02", "name": "Laptop"}, http.StatusCreated, nil)
	call(t, "POST", url+"/api/vendors", token, map[string]string{"name": "Dell"}, http.StatusCreated, &r.vendor)
	call(t, "POST", url+"/api/warehouses", token, map[string]string{"name": "Main Warehouse", "address": "123 Main St"}, http.StatusCreated, &r.warehouse)
	call(t, "POST", url+"/api/employees", token, map[string]string{"name": "Alice", "phone": "001", "position": "Engineer"}, http.StatusCreated, &r.employee)
	return r
}

func createAsset(t *testing.T, url, token string, r refs, deviceType, serial string) model.Asset {
	t.Helper()
	var a model.Asset
	call(t, "POST", url+"/api/assets", token, map[string]any{
		"company_code":     "WWP",
		"device_type_code": deviceType,
		"serial_number":    serial,
		"vendor_id":        r.vendor.ID,
		"model":            "P2419H",
		"location_type":    model.LocationWarehouse,
		"location_id":      r.warehouse.ID,
	}, http.StatusCreated, &a)
	return a
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %q", body["status"])
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing fields fail validation.
	body, _ = json.Marshal(map[string]string{"username": "admin"})
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	call(t, "GET", server.URL+"/api/companies", token, nil, http.StatusOK, nil)
	call(t, "POST", server.URL+"/api/auth/logout", token, nil, http.StatusOK, nil)
	call(t, "GET", server.URL+"/api/companies", token, nil, http.StatusUnauthorized, nil)
}

func TestChangePassword(t *testing.T) {
	server, token := setupTestServer(t)

	call(t, "PUT", server.URL+"/api/auth/password", token, map[string]string{
		"current_password": testPassword, "new_password": "short",
	}, http.StatusBadRequest, nil)
	call(t, "PUT", server.URL+"/api/auth/password", token, map[string]string{
		"current_password": "wrong-password", "new_password": "new-password",
	}, http.StatusUnauthorized, nil)
	call(t, "PUT", server.URL+"/api/auth/password", token, map[string]string{
		"current_password": testPassword, "new_password": "new-password",
	}, http.StatusOK, nil)
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := http.Get(server.URL + "/api/assets")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	server, database := newTestServer(t)
	createTestUser(t, database, "admin", model.RoleAdmin)
	createTestUser(t, database, "user1", model.RoleUser)
	adminToken := login(t, server, "admin")
	userToken := login(t, server, "user1")

	r := seedRefs(t, server.URL, adminToken)

	// Reference data is admin only.
	call(t, "POST", server.URL+"/api/vendors", userToken, map[string]string{"name": "HP"}, http.StatusForbidden, nil)
	// Regular user should not access /api/users.
	call(t, "GET", server.URL+"/api/users", userToken, nil, http.StatusForbidden, nil)

	// Any user may register assets, but hard delete needs manager+.
	a := createAsset(t, server.URL, userToken, r, "01", "SN-1")
	call(t, "DELETE", fmt.Sprintf("%s/api/assets/%d", server.URL, a.ID), userToken, nil, http.StatusForbidden, nil)
	call(t, "DELETE", fmt.Sprintf("%s/api/assets/%d", server.URL, a.ID), adminToken, nil, http.StatusOK, nil)
}

func TestUsersAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	var user model.User
	call(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "manager1", "password": "manager-pass", "role": model.RoleManager,
	}, http.StatusCreated, &user)
	call(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "manager1", "password": "manager-pass", "role": model.RoleManager,
	}, http.StatusConflict, nil)
	call(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "x", "password": "manager-pass", "role": "owner",
	}, http.StatusBadRequest, nil)

	call(t, "PUT", fmt.Sprintf("%s/api/users/%d", server.URL, user.ID), token,
		map[string]string{"role": model.RoleUser}, http.StatusOK, &user)
	if user.Role != model.RoleUser {
		t.Errorf("expected role user, got %s", user.Role)
	}

	call(t, "PUT", fmt.Sprintf("%s/api/users/%d/password", server.URL, user.ID), token,
		map[string]string{"password": "another-pass"}, http.StatusOK, nil)
	call(t, "DELETE", fmt.Sprintf("%s/api/users/%d", server.URL, user.ID), token, nil, http.StatusOK, nil)
	call(t, "DELETE", fmt.Sprintf("%s/api/users/%d", server.URL, user.ID), token, nil, http.StatusNotFound, nil)
}

func TestAccountChangesApplyToIssuedTokens(t *testing.T) {
	server, database := newTestServer(t)
	admin := createTestUser(t, database, "admin", model.RoleAdmin)
	clerk := createTestUser(t, database, "clerk", model.RoleUser)
	adminToken := login(t, server, "admin")
	clerkToken := login(t, server, "clerk")

	call(t, "GET", server.URL+"/api/users", clerkToken, nil, http.StatusForbidden, nil)

	// A promotion is honoured without logging in again.
	call(t, "PUT", fmt.Sprintf("%s/api/users/%d", server.URL, clerk.ID), adminToken,
		map[string]string{"role": model.RoleAdmin}, http.StatusOK, nil)
	call(t, "GET", server.URL+"/api/users", clerkToken, nil, http.StatusOK, nil)

	// Admins cannot demote or delete themselves.
	call(t, "PUT", fmt.Sprintf("%s/api/users/%d", server.URL, admin.ID), adminToken,
		map[string]string{"role": model.RoleUser}, http.StatusBadRequest, nil)
	call(t, "DELETE", fmt.Sprintf("%s/api/users/%d", server.URL, admin.ID), adminToken, nil, http.StatusBadRequest, nil)

	// A deleted account's token stops working.
	call(t, "DELETE", fmt.Sprintf("%s/api/users/%d", server.URL, clerk.ID), adminToken, nil, http.StatusOK, nil)
	call(t, "GET", server.URL+"/api/companies", clerkToken, nil, http.StatusUnauthorized, nil)
}

func TestReferenceAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)
	r := seedRefs(t, server.URL, token)

	// Codes are validated and unique.
	call(t, "POST", server.URL+"/api/companies", token, map[string]string{"code": "ww", "name": "x"}, http.StatusBadRequest, nil)
	call(t, "POST", server.URL+"/api/companies", token, map[string]string{"code": "WWP", "name": "x"}, http.StatusConflict, nil)

	var companies []model.Company
	call(t, "GET", server.URL+"/api/companies", token, nil, http.StatusOK, &companies)
	if len(companies) != 1 {
		t.Errorf("expected 1 company, got %d", len(companies))
	}

	var company model.Company
	call(t, "PUT", server.URL+"/api/companies/WWP", token, map[string]string{"name": "WWP Ltd"}, http.StatusOK, &company)
	if company.Name != "WWP Ltd" {
		t.Errorf("expected renamed company, got %q", company.Name)
	}
	call(t, "GET", server.URL+"/api/companies/ZZZ", token, nil, http.StatusNotFound, nil)

	// Referenced entities cannot be deleted.
	createAsset(t, server.URL, token, r, "01", "SN-1")
	var body errorBody
	call(t, "DELETE", server.URL+"/api/device-types/01", token, nil, http.StatusConflict, &body)
	if body.Reason != store.ReasonInUse {
		t.Errorf("expected reason in_use, got %q", body.Reason)
	}
	call(t, "DELETE", server.URL+"/api/device-types/02", token, nil, http.StatusOK, nil)
	call(t, "DELETE", fmt.Sprintf("%s/api/warehouses/%d", server.URL, r.warehouse.ID), token, nil, http.StatusConflict, nil)

	// Duplicate employee phone.
	call(t, "POST", server.URL+"/api/employees", token, map[string]string{"name": "Bob", "phone": "001"}, http.StatusConflict, nil)
}

func TestAssetsAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)
	r := seedRefs(t, server.URL, token)

	var preview map[string]string
	call(t, "GET", server.URL+"/api/assets/next-number?company_code=WWP&device_type_code=01", token, nil, http.StatusOK, &preview)
	call(t, "GET", server.URL+"/api/assets/next-number?company_code=WWP&device_type_code=01", token, nil, http.StatusOK, &preview)
	if preview["inventory_number"] != "WWP-01/0001" {
		t.Errorf("expected preview WWP-01/0001, got %q", preview["inventory_number"])
	}
	call(t, "GET", server.URL+"/api/assets/next-number?company_code=wwp&device_type_code=01", token, nil, http.StatusBadRequest, nil)

	first := createAsset(t, server.URL, token, r, "01", "SN-1")
	second := createAsset(t, server.URL, token, r, "01", "SN-2")
	laptop := createAsset(t, server.URL, token, r, "02", "SN-3")
	if first.InventoryNumber != "WWP-01/0001" || second.InventoryNumber != "WWP-01/0002" || laptop.InventoryNumber != "WWP-02/0001" {
		t.Fatalf("unexpected numbers: %s %s %s", first.InventoryNumber, second.InventoryNumber, laptop.InventoryNumber)
	}
	if first.Vendor != "Dell" || first.LocationName != "Main Warehouse" {
		t.Errorf("unexpected asset detail: %+v", first)
	}

	// Duplicate serial.
	var body errorBody
	call(t, "POST", server.URL+"/api/assets", token, map[string]any{
		"company_code": "WWP", "device_type_code": "01", "serial_number": "SN-1",
		"vendor_id": r.vendor.ID, "model": "X", "location_type": "warehouse", "location_id": r.warehouse.ID,
	}, http.StatusConflict, &body)
	if body.Kind != string(store.KindConflict) {
		t.Errorf("expected conflict kind, got %q", body.Kind)
	}

	// Missing fields.
	call(t, "POST", server.URL+"/api/assets", token, map[string]any{"company_code": "WWP"}, http.StatusBadRequest, nil)

	var list []model.Asset
	call(t, "GET", server.URL+"/api/assets?device_type=01", token, nil, http.StatusOK, &list)
	if len(list) != 2 {
		t.Errorf("expected 2 monitors, got %d", len(list))
	}
	call(t, "GET", server.URL+"/api/assets?search=sn-3", token, nil, http.StatusOK, &list)
	if len(list) != 1 || list[0].ID != laptop.ID {
		t.Errorf("expected search to find the laptop, got %+v", list)
	}
	call(t, "GET", server.URL+"/api/assets?limit=1&offset=1", token, nil, http.StatusOK, &list)
	if len(list) != 1 || list[0].ID != second.ID {
		t.Errorf("expected second asset on page 2, got %+v", list)
	}

	var scanned model.Asset
	call(t, "GET", server.URL+"/api/assets/scan?number=WWP-01/0002", token, nil, http.StatusOK, &scanned)
	if scanned.ID != second.ID {
		t.Errorf("scan returned asset %d, want %d", scanned.ID, second.ID)
	}
	call(t, "GET", server.URL+"/api/assets/scan?number=WWP-01/9999", token, nil, http.StatusNotFound, nil)
	call(t, "GET", server.URL+"/api/assets/scan?number=bogus", token, nil, http.StatusBadRequest, nil)
	call(t, "GET", server.URL+"/api/assets/scan?number=WWP-01/12A4", token, nil, http.StatusBadRequest, nil)
	call(t, "GET", fmt.Sprintf("%s/api/assets?location_id=%d", server.URL, r.warehouse.ID), token, nil, http.StatusBadRequest, nil)

	var updated model.Asset
	call(t, "PUT", fmt.Sprintf("%s/api/assets/%d", server.URL, first.ID), token,
		map[string]string{"model": "U2720Q"}, http.StatusOK, &updated)
	if updated.Model != "U2720Q" || updated.InventoryNumber != first.InventoryNumber {
		t.Errorf("unexpected update result: %+v", updated)
	}
}

func TestMovementsAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)
	r := seedRefs(t, server.URL, token)
	a := createAsset(t, server.URL, token, r, "01", "SN-1")

	var m model.Movement
	call(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"asset_id": a.ID, "to_type": model.LocationEmployee, "to_id": r.employee.ID,
	}, http.StatusCreated, &m)
	if m.FromType != model.LocationWarehouse || m.ToType != model.LocationEmployee || m.ToName != "Alice" {
		t.Errorf("unexpected movement: %+v", m)
	}
	if m.MovedBy == nil {
		t.Error("expected moved_by to be recorded")
	}

	// Moving to the current location is rejected.
	var body errorBody
	call(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"asset_id": a.ID, "to_type": model.LocationEmployee, "to_id": r.employee.ID,
	}, http.StatusBadRequest, &body)
	if body.Reason != store.ReasonNoOpMove {
		t.Errorf("expected no_op_move, got %q", body.Reason)
	}

	// Unknown destination.
	call(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"asset_id": a.ID, "to_type": model.LocationWarehouse, "to_id": 999,
	}, http.StatusNotFound, nil)

	// Update with a location goes through the ledger.
	call(t, "PUT", fmt.Sprintf("%s/api/assets/%d", server.URL, a.ID), token, map[string]any{
		"location_type": model.LocationWarehouse, "location_id": r.warehouse.ID,
	}, http.StatusOK, nil)

	var history []model.Movement
	call(t, "GET", fmt.Sprintf("%s/api/assets/%d/movements", server.URL, a.ID), token, nil, http.StatusOK, &history)
	if len(history) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(history))
	}
	if history[0].ToType != model.LocationWarehouse {
		t.Errorf("expected most recent movement first, got %+v", history[0])
	}

	var events []model.AssignmentEvent
	call(t, "GET", fmt.Sprintf("%s/api/employees/%d/history", server.URL, r.employee.ID), token, nil, http.StatusOK, &events)
	if len(events) != 2 || events[0].Event != model.AssignmentUnassigned || events[1].Event != model.AssignmentAssigned {
		t.Errorf("unexpected assignment history: %+v", events)
	}
}

func TestEmployeeTerminationBlocked(t *testing.T) {
	server, token := setupTestServer(t)
	r := seedRefs(t, server.URL, token)
	a := createAsset(t, server.URL, token, r, "01", "SN-1")
	call(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"asset_id": a.ID, "to_type": model.LocationEmployee, "to_id": r.employee.ID,
	}, http.StatusCreated, nil)

	statusURL := fmt.Sprintf("%s/api/employees/%d/status", server.URL, r.employee.ID)
	var body errorBody
	call(t, "PUT", statusURL, token, map[string]string{"status": model.EmployeeTerminated}, http.StatusBadRequest, &body)
	if body.Reason != store.ReasonEmployeeHasAssets {
		t.Errorf("expected employee_has_assets, got %q", body.Reason)
	}
	if len(body.Assets) != 1 || body.Assets[0].ID != a.ID {
		t.Errorf("expected blocking asset in body, got %+v", body.Assets)
	}

	var assets []model.Asset
	call(t, "GET", fmt.Sprintf("%s/api/employees/%d/assets", server.URL, r.employee.ID), token, nil, http.StatusOK, &assets)
	if len(assets) != 1 {
		t.Errorf("expected 1 assigned asset, got %d", len(assets))
	}

	call(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"asset_id": a.ID, "to_type": model.LocationWarehouse, "to_id": r.warehouse.ID,
	}, http.StatusCreated, nil)

	var e model.Employee
	call(t, "PUT", statusURL, token, map[string]string{"status": model.EmployeeTerminated}, http.StatusOK, &e)
	if e.Status != model.EmployeeTerminated {
		t.Errorf("expected terminated, got %s", e.Status)
	}

	var employees []model.Employee
	call(t, "GET", server.URL+"/api/employees?status=working", token, nil, http.StatusOK, &employees)
	if len(employees) != 0 {
		t.Errorf("expected no working employees, got %d", len(employees))
	}
}

func TestSessionsAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)
	r := seedRefs(t, server.URL, token)
	monitor := createAsset(t, server.URL, token, r, "01", "SN-1")
	createAsset(t, server.URL, token, r, "01", "SN-2")
	laptop := createAsset(t, server.URL, token, r, "02", "SN-3")

	var body errorBody
	call(t, "POST", server.URL+"/api/inventory/sessions", token, map[string]any{
		"device_type_codes": []string{"01", "77"},
	}, http.StatusNotFound, &body)
	if body.Reason != store.ReasonUnknownDeviceTypes || len(body.Codes) != 1 || body.Codes[0] != "77" {
		t.Errorf("expected unknown code 77, got %+v", body)
	}

	var session model.InventorySession
	call(t, "POST", server.URL+"/api/inventory/sessions", token, map[string]any{
		"description": "Q3 audit", "device_type_codes": []string{"01"},
	}, http.StatusCreated, &session)
	base := fmt.Sprintf("%s/api/inventory/sessions/%d", server.URL, session.ID)

	call(t, "POST", base+"/results", token, map[string]any{"asset_id": monitor.ID, "found": true}, http.StatusCreated, nil)
	call(t, "POST", base+"/results", token, map[string]any{"asset_id": monitor.ID, "found": false}, http.StatusConflict, &body)
	if body.Reason != store.ReasonDuplicateResult {
		t.Errorf("expected duplicate_result, got %q", body.Reason)
	}
	call(t, "POST", base+"/results", token, map[string]any{"asset_id": laptop.ID, "found": true}, http.StatusBadRequest, &body)
	if body.Kind != string(store.KindOutOfScope) {
		t.Errorf("expected out_of_scope, got %q", body.Kind)
	}
	call(t, "POST", base+"/results", token, map[string]any{"asset_id": monitor.ID}, http.StatusBadRequest, nil)

	var progress model.SessionProgress
	call(t, "GET", base+"/progress", token, nil, http.StatusOK, &progress)
	if progress.Total != 2 || progress.Checked != 1 || progress.Remaining != 1 {
		t.Errorf("unexpected progress: %+v", progress)
	}

	var checked []model.InventoryResult
	call(t, "GET", base+"/results", token, nil, http.StatusOK, &checked)
	if len(checked) != 1 || checked[0].Asset == nil || checked[0].Asset.ID != monitor.ID {
		t.Errorf("unexpected checked items: %+v", checked)
	}

	var remaining []model.Asset
	call(t, "GET", base+"/remaining", token, nil, http.StatusOK, &remaining)
	if len(remaining) != 1 || remaining[0].SerialNumber != "SN-2" {
		t.Errorf("unexpected remaining assets: %+v", remaining)
	}

	call(t, "POST", base+"/complete", token, nil, http.StatusOK, &session)
	if session.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	call(t, "POST", base+"/complete", token, nil, http.StatusBadRequest, &body)
	if body.Reason != store.ReasonAlreadyCompleted {
		t.Errorf("expected already_completed, got %q", body.Reason)
	}
	call(t, "POST", base+"/results", token, map[string]any{"asset_id": remaining[0].ID, "found": true}, http.StatusBadRequest, &body)
	if body.Reason != store.ReasonSessionCompleted {
		t.Errorf("expected session_completed, got %q", body.Reason)
	}

	call(t, "DELETE", base, token, nil, http.StatusOK, nil)
	call(t, "GET", base, token, nil, http.StatusNotFound, nil)
}

func TestLabelEndpoint(t *testing.T) {
	server, token := setupTestServer(t)
	r := seedRefs(t, server.URL, token)
	a := createAsset(t, server.URL, token, r, "01", "SN-1")

	req, _ := authRequest("GET", fmt.Sprintf("%s/api/assets/%d/label?size=40x30", server.URL, a.ID), token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("label request: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("expected PNG data")
	}

	call(t, "GET", fmt.Sprintf("%s/api/assets/%d/label?size=10x10", server.URL, a.ID), token, nil, http.StatusBadRequest, nil)
	call(t, "GET", server.URL+"/api/assets/999/label", token, nil, http.StatusNotFound, nil)
}

func TestReportsAPI(t *testing.T) {
	server, token := setupTestServer(t)
	r := seedRefs(t, server.URL, token)
	a := createAsset(t, server.URL, token, r, "01", "SN-1")
	createAsset(t, server.URL, token, r, "02", "SN-2")
	call(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"asset_id": a.ID, "to_type": model.LocationEmployee, "to_id": r.employee.ID,
	}, http.StatusCreated, nil)

	var rows []model.ReportRow
	call(t, "GET", fmt.Sprintf("%s/api/reports/data?employee_id=%d", server.URL, r.employee.ID), token, nil, http.StatusOK, &rows)
	if len(rows) != 1 || rows[0].Phone != "001" || rows[0].VendorModel != "Dell P2419H" {
		t.Errorf("unexpected report rows: %+v", rows)
	}

	req, _ := authRequest("GET", server.URL+"/api/reports/export", token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export request: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "attachment; filename=assets_report.xlsx" {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("expected xlsx data")
	}
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/api/assets", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Errorf("expected allowed origin %s, got %q", testOrigin, got)
	}

	req, _ = http.NewRequest(http.MethodOptions, server.URL+"/api/assets", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS headers for unknown origin, got %q", got)
	}
}

func TestLoggingMiddlewareRequestID(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RequestID(r.Context()) == "" {
			t.Error("expected request id in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected generated request id header")
	}

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected client request id to be kept, got %q", got)
	}
}
