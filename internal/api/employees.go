package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/inventura/internal/config"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// EmployeesHandler handles employee endpoints.
type EmployeesHandler struct {
	DB     *sql.DB
	Config *config.Config
}

type employeeRequest struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Position string `json:"position"`
}

type employeeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=working terminated"`
}

// List handles GET /api/employees.
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidEmployeeStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	employees, err := store.ListEmployees(r.Context(), h.DB, status)
	if err != nil {
		writeStoreError(w, err, "list employees")
		return
	}
	if employees == nil {
		employees = []model.Employee{}
	}
	jsonResponse(w, http.StatusOK, employees)
}

// Create handles POST /api/employees.
func (h *EmployeesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	phone, err := model.NormalizePhone(req.Phone, h.Config.PhoneRegion)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	employee, err := store.CreateEmployee(r.Context(), h.DB, req.Name, phone, req.Position)
	if err != nil {
		writeStoreError(w, err, "create employee")
		return
	}

	slog.Info("employee created", "user", username(r), "employee", employee.Name, "phone", employee.Phone)
	jsonResponse(w, http.StatusCreated, employee)
}

// Get handles GET /api/employees/{id}.
func (h *EmployeesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "employee")
	if !ok {
		return
	}

	employee, err := store.GetEmployee(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get employee")
		return
	}
	if employee == nil {
		jsonError(w, http.StatusNotFound, "employee not found")
		return
	}
	jsonResponse(w, http.StatusOK, employee)
}

// Update handles PUT /api/employees/{id}.
func (h *EmployeesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "employee")
	if !ok {
		return
	}

	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	phone, err := model.NormalizePhone(req.Phone, h.Config.PhoneRegion)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	employee, err := store.UpdateEmployee(r.Context(), h.DB, id, req.Name, phone, req.Position)
	if err != nil {
		writeStoreError(w, err, "update employee")
		return
	}

	slog.Info("employee updated", "user", username(r), "employee", employee.Name)
	jsonResponse(w, http.StatusOK, employee)
}

// SetStatus handles PUT /api/employees/{id}/status. Terminating an employee
// who still holds assets fails with the blocking assets in the body.
func (h *EmployeesHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "employee")
	if !ok {
		return
	}

	var req employeeStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	employee, err := store.SetEmployeeStatus(r.Context(), h.DB, id, req.Status)
	if err != nil {
		writeStoreError(w, err, "change employee status")
		return
	}

	slog.Info("employee status changed", "user", username(r), "employee", employee.Name, "status", employee.Status)
	jsonResponse(w, http.StatusOK, employee)
}

// Delete handles DELETE /api/employees/{id}.
func (h *EmployeesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "employee")
	if !ok {
		return
	}

	if err := store.DeleteEmployee(r.Context(), h.DB, id); err != nil {
		writeStoreError(w, err, "delete employee")
		return
	}

	slog.Info("employee deleted", "user", username(r), "employee_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "employee deleted"})
}

// Assets handles GET /api/employees/{id}/assets.
func (h *EmployeesHandler) Assets(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "employee")
	if !ok {
		return
	}

	assets, err := store.EmployeeAssets(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "list employee assets")
		return
	}
	if assets == nil {
		assets = []model.Asset{}
	}
	jsonResponse(w, http.StatusOK, assets)
}

// History handles GET /api/employees/{id}/history.
func (h *EmployeesHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "employee")
	if !ok {
		return
	}

	events, err := store.EmployeeAssignmentHistory(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "list assignment history")
		return
	}
	if events == nil {
		events = []model.AssignmentEvent{}
	}
	jsonResponse(w, http.StatusOK, events)
}
