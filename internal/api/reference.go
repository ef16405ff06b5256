package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// ReferenceHandler serves companies, device types, vendors and warehouses.
// Reads are open to every role; writes are admin only.
type ReferenceHandler struct {
	DB *sql.DB
}

type createCodeRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required"`
}

type warehouseRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
}

// ListCompanies handles GET /api/companies.
func (h *ReferenceHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := store.ListCompanies(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, err, "list companies")
		return
	}
	if companies == nil {
		companies = []model.Company{}
	}
	jsonResponse(w, http.StatusOK, companies)
}

// CreateCompany handles POST /api/companies.
func (h *ReferenceHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	company, err := store.CreateCompany(r.Context(), h.DB, req.Code, req.Name)
	if err != nil {
		writeStoreError(w, err, "create company")
		return
	}

	slog.Info("company created", "user", username(r), "code", company.Code, "name", company.Name)
	jsonResponse(w, http.StatusCreated, company)
}

// GetCompany handles GET /api/companies/{code}.
func (h *ReferenceHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := store.GetCompany(r.Context(), h.DB, r.PathValue("code"))
	if err != nil {
		writeStoreError(w, err, "get company")
		return
	}
	if company == nil {
		jsonError(w, http.StatusNotFound, "company not found")
		return
	}
	jsonResponse(w, http.StatusOK, company)
}

// RenameCompany handles PUT /api/companies/{code}.
func (h *ReferenceHandler) RenameCompany(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	company, err := store.RenameCompany(r.Context(), h.DB, r.PathValue("code"), req.Name)
	if err != nil {
		writeStoreError(w, err, "rename company")
		return
	}

	slog.Info("company renamed", "user", username(r), "code", company.Code, "name", company.Name)
	jsonResponse(w, http.StatusOK, company)
}

// DeleteCompany handles DELETE /api/companies/{code}.
func (h *ReferenceHandler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := store.DeleteCompany(r.Context(), h.DB, code); err != nil {
		writeStoreError(w, err, "delete company")
		return
	}

	slog.Info("company deleted", "user", username(r), "code", code)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "company deleted"})
}

// ListDeviceTypes handles GET /api/device-types.
func (h *ReferenceHandler) ListDeviceTypes(w http.ResponseWriter, r *http.Request) {
	types, err := store.ListDeviceTypes(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, err, "list device types")
		return
	}
	if types == nil {
		types = []model.DeviceType{}
	}
	jsonResponse(w, http.StatusOK, types)
}

// CreateDeviceType handles POST /api/device-types.
func (h *ReferenceHandler) CreateDeviceType(w http.ResponseWriter, r *http.Request) {
	var req createCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	dt, err := store.CreateDeviceType(r.Context(), h.DB, req.Code, req.Name)
	if err != nil {
		writeStoreError(w, err, "create device type")
		return
	}

	slog.Info("device type created", "user", username(r), "code", dt.Code, "name", dt.Name)
	jsonResponse(w, http.StatusCreated, dt)
}

// GetDeviceType handles GET /api/device-types/{code}.
func (h *ReferenceHandler) GetDeviceType(w http.ResponseWriter, r *http.Request) {
	dt, err := store.GetDeviceType(r.Context(), h.DB, r.PathValue("code"))
	if err != nil {
		writeStoreError(w, err, "get device type")
		return
	}
	if dt == nil {
		jsonError(w, http.StatusNotFound, "device type not found")
		return
	}
	jsonResponse(w, http.StatusOK, dt)
}

// RenameDeviceType handles PUT /api/device-types/{code}.
func (h *ReferenceHandler) RenameDeviceType(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	dt, err := store.RenameDeviceType(r.Context(), h.DB, r.PathValue("code"), req.Name)
	if err != nil {
		writeStoreError(w, err, "rename device type")
		return
	}

	slog.Info("device type renamed", "user", username(r), "code", dt.Code, "name", dt.Name)
	jsonResponse(w, http.StatusOK, dt)
}

// DeleteDeviceType handles DELETE /api/device-types/{code}.
func (h *ReferenceHandler) DeleteDeviceType(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := store.DeleteDeviceType(r.Context(), h.DB, code); err != nil {
		writeStoreError(w, err, "delete device type")
		return
	}

	slog.Info("device type deleted", "user", username(r), "code", code)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "device type deleted"})
}

// ListVendors handles GET /api/vendors.
func (h *ReferenceHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := store.ListVendors(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, err, "list vendors")
		return
	}
	if vendors == nil {
		vendors = []model.Vendor{}
	}
	jsonResponse(w, http.StatusOK, vendors)
}

// CreateVendor handles POST /api/vendors.
func (h *ReferenceHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	vendor, err := store.CreateVendor(r.Context(), h.DB, req.Name)
	if err != nil {
		writeStoreError(w, err, "create vendor")
		return
	}

	slog.Info("vendor created", "user", username(r), "vendor", vendor.Name)
	jsonResponse(w, http.StatusCreated, vendor)
}

// GetVendor handles GET /api/vendors/{id}.
func (h *ReferenceHandler) GetVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "vendor")
	if !ok {
		return
	}

	vendor, err := store.GetVendor(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get vendor")
		return
	}
	if vendor == nil {
		jsonError(w, http.StatusNotFound, "vendor not found")
		return
	}
	jsonResponse(w, http.StatusOK, vendor)
}

// RenameVendor handles PUT /api/vendors/{id}. Assets of the vendor pick up
// the new name.
func (h *ReferenceHandler) RenameVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "vendor")
	if !ok {
		return
	}

	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	vendor, err := store.RenameVendor(r.Context(), h.DB, id, req.Name)
	if err != nil {
		writeStoreError(w, err, "rename vendor")
		return
	}

	slog.Info("vendor renamed", "user", username(r), "vendor_id", vendor.ID, "vendor", vendor.Name)
	jsonResponse(w, http.StatusOK, vendor)
}

// DeleteVendor handles DELETE /api/vendors/{id}.
func (h *ReferenceHandler) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "vendor")
	if !ok {
		return
	}

	if err := store.DeleteVendor(r.Context(), h.DB, id); err != nil {
		writeStoreError(w, err, "delete vendor")
		return
	}

	slog.Info("vendor deleted", "user", username(r), "vendor_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "vendor deleted"})
}

// ListWarehouses handles GET /api/warehouses.
func (h *ReferenceHandler) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := store.ListWarehouses(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, err, "list warehouses")
		return
	}
	if warehouses == nil {
		warehouses = []model.Warehouse{}
	}
	jsonResponse(w, http.StatusOK, warehouses)
}

// CreateWarehouse handles POST /api/warehouses.
func (h *ReferenceHandler) CreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var req warehouseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	wh, err := store.CreateWarehouse(r.Context(), h.DB, req.Name, req.Address)
	if err != nil {
		writeStoreError(w, err, "create warehouse")
		return
	}

	slog.Info("warehouse created", "user", username(r), "warehouse", wh.Name)
	jsonResponse(w, http.StatusCreated, wh)
}

// GetWarehouse handles GET /api/warehouses/{id}.
func (h *ReferenceHandler) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "warehouse")
	if !ok {
		return
	}

	wh, err := store.GetWarehouse(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get warehouse")
		return
	}
	if wh == nil {
		jsonError(w, http.StatusNotFound, "warehouse not found")
		return
	}
	jsonResponse(w, http.StatusOK, wh)
}

// UpdateWarehouse handles PUT /api/warehouses/{id}.
func (h *ReferenceHandler) UpdateWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "warehouse")
	if !ok {
		return
	}

	var req warehouseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	wh, err := store.UpdateWarehouse(r.Context(), h.DB, id, req.Name, req.Address)
	if err != nil {
		writeStoreError(w, err, "update warehouse")
		return
	}

	slog.Info("warehouse updated", "user", username(r), "warehouse", wh.Name)
	jsonResponse(w, http.StatusOK, wh)
}

// DeleteWarehouse handles DELETE /api/warehouses/{id}.
func (h *ReferenceHandler) DeleteWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "warehouse")
	if !ok {
		return
	}

	if err := store.DeleteWarehouse(r.Context(), h.DB, id); err != nil {
		writeStoreError(w, err, "delete warehouse")
		return
	}

	slog.Info("warehouse deleted", "user", username(r), "warehouse_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "warehouse deleted"})
}
