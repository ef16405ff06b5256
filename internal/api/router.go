package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/inventura/internal/auth"
	"github.com/erazemk/inventura/internal/config"
	"github.com/erazemk/inventura/internal/lock"
	"github.com/erazemk/inventura/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, cfg *config.Config, tokens *auth.Tokens, locks lock.Locker) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, Tokens: tokens}
	usersHandler := &UsersHandler{DB: db}
	refHandler := &ReferenceHandler{DB: db}
	employeesHandler := &EmployeesHandler{DB: db, Config: cfg}
	assetsHandler := &AssetsHandler{DB: db, Config: cfg, Locks: locks}
	movementsHandler := &MovementsHandler{DB: db}
	sessionsHandler := &SessionsHandler{DB: db}
	reportsHandler := &ReportsHandler{DB: db}

	authMW := AuthMiddleware(tokens, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }
	manager := func(h http.HandlerFunc) http.Handler { return authMW(requireManager(h)) }

	// Public.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Reference data: read (all roles), write (admin).
	mux.Handle("GET /api/companies", authed(refHandler.ListCompanies))
	mux.Handle("POST /api/companies", admin(refHandler.CreateCompany))
	mux.Handle("GET /api/companies/{code}", authed(refHandler.GetCompany))
	mux.Handle("PUT /api/companies/{code}", admin(refHandler.RenameCompany))
	mux.Handle("DELETE /api/companies/{code}", admin(refHandler.DeleteCompany))

	mux.Handle("GET /api/device-types", authed(refHandler.ListDeviceTypes))
	mux.Handle("POST /api/device-types", admin(refHandler.CreateDeviceType))
	mux.Handle("GET /api/device-types/{code}", authed(refHandler.GetDeviceType))
	mux.Handle("PUT /api/device-types/{code}", admin(refHandler.RenameDeviceType))
	mux.Handle("DELETE /api/device-types/{code}", admin(refHandler.DeleteDeviceType))

	mux.Handle("GET /api/vendors", authed(refHandler.ListVendors))
	mux.Handle("POST /api/vendors", admin(refHandler.CreateVendor))
	mux.Handle("GET /api/vendors/{id}", authed(refHandler.GetVendor))
	mux.Handle("PUT /api/vendors/{id}", admin(refHandler.RenameVendor))
	mux.Handle("DELETE /api/vendors/{id}", admin(refHandler.DeleteVendor))

	mux.Handle("GET /api/warehouses", authed(refHandler.ListWarehouses))
	mux.Handle("POST /api/warehouses", admin(refHandler.CreateWarehouse))
	mux.Handle("GET /api/warehouses/{id}", authed(refHandler.GetWarehouse))
	mux.Handle("PUT /api/warehouses/{id}", admin(refHandler.UpdateWarehouse))
	mux.Handle("DELETE /api/warehouses/{id}", admin(refHandler.DeleteWarehouse))

	mux.Handle("GET /api/employees", authed(employeesHandler.List))
	mux.Handle("POST /api/employees", admin(employeesHandler.Create))
	mux.Handle("GET /api/employees/{id}", authed(employeesHandler.Get))
	mux.Handle("PUT /api/employees/{id}", admin(employeesHandler.Update))
	mux.Handle("PUT /api/employees/{id}/status", admin(employeesHandler.SetStatus))
	mux.Handle("DELETE /api/employees/{id}", admin(employeesHandler.Delete))
	mux.Handle("GET /api/employees/{id}/assets", authed(employeesHandler.Assets))
	mux.Handle("GET /api/employees/{id}/history", authed(employeesHandler.History))

	// Assets: all roles, hard delete manager+.
	mux.Handle("GET /api/assets", authed(assetsHandler.List))
	mux.Handle("POST /api/assets", authed(assetsHandler.Create))
	mux.Handle("GET /api/assets/scan", authed(assetsHandler.Scan))
	mux.Handle("GET /api/assets/next-number", authed(assetsHandler.NextNumber))
	mux.Handle("GET /api/assets/{id}", authed(assetsHandler.Get))
	mux.Handle("PUT /api/assets/{id}", authed(assetsHandler.Update))
	mux.Handle("DELETE /api/assets/{id}", manager(assetsHandler.Delete))
	mux.Handle("GET /api/assets/{id}/movements", authed(assetsHandler.Movements))
	mux.Handle("GET /api/assets/{id}/label", authed(assetsHandler.Label))

	// Movements (all roles).
	mux.Handle("POST /api/movements", authed(movementsHandler.Create))

	// Inventory sessions: all roles, delete manager+.
	mux.Handle("GET /api/inventory/sessions", authed(sessionsHandler.List))
	mux.Handle("POST /api/inventory/sessions", authed(sessionsHandler.Create))
	mux.Handle("GET /api/inventory/sessions/{id}", authed(sessionsHandler.Get))
	mux.Handle("DELETE /api/inventory/sessions/{id}", manager(sessionsHandler.Delete))
	mux.Handle("POST /api/inventory/sessions/{id}/complete", authed(sessionsHandler.Complete))
	mux.Handle("POST /api/inventory/sessions/{id}/results", authed(sessionsHandler.RecordResult))
	mux.Handle("GET /api/inventory/sessions/{id}/results", authed(sessionsHandler.Results))
	mux.Handle("GET /api/inventory/sessions/{id}/remaining", authed(sessionsHandler.Remaining))
	mux.Handle("GET /api/inventory/sessions/{id}/progress", authed(sessionsHandler.Progress))

	// Reports (all roles).
	mux.Handle("GET /api/reports/data", authed(reportsHandler.Data))
	mux.Handle("GET /api/reports/export", authed(reportsHandler.Export))

	return CORSMiddleware(cfg)(mux)
}
