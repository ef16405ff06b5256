package api

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/inventura/internal/config"
	"github.com/erazemk/inventura/internal/label"
	"github.com/erazemk/inventura/internal/lock"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// lockTimeout bounds how long a create waits for its number prefix.
const lockTimeout = 10 * time.Second

// AssetsHandler handles asset endpoints.
type AssetsHandler struct {
	DB     *sql.DB
	Config *config.Config
	Locks  lock.Locker
}

type createAssetRequest struct {
	CompanyCode    string `json:"company_code" validate:"required"`
	DeviceTypeCode string `json:"device_type_code" validate:"required"`
	SerialNumber   string `json:"serial_number" validate:"required"`
	VendorID       int64  `json:"vendor_id" validate:"required,gt=0"`
	Model          string `json:"model" validate:"required"`
	LocationType   string `json:"location_type" validate:"required,oneof=employee warehouse"`
	LocationID     int64  `json:"location_id" validate:"required,gt=0"`
}

type updateAssetRequest struct {
	SerialNumber *string `json:"serial_number" validate:"omitempty,min=1"`
	VendorID     *int64  `json:"vendor_id" validate:"omitempty,gt=0"`
	Model        *string `json:"model" validate:"omitempty,min=1"`
	LocationType *string `json:"location_type" validate:"omitempty,oneof=employee warehouse"`
	LocationID   *int64  `json:"location_id" validate:"omitempty,gt=0"`
}

// List handles GET /api/assets.
func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.AssetFilter{
		DeviceTypeCode: q.Get("device_type"),
		LocationType:   q.Get("location_type"),
		Search:         q.Get("search"),
	}

	locationID, err := queryInt(r, "location_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.LocationID = locationID
	filter.Limit = int(limit)
	filter.Offset = int(offset)

	assets, err := store.ListAssets(r.Context(), h.DB, filter)
	if err != nil {
		writeStoreError(w, err, "list assets")
		return
	}
	if assets == nil {
		assets = []model.Asset{}
	}
	jsonResponse(w, http.StatusOK, assets)
}

// Create handles POST /api/assets. Creates sharing a number prefix are
// serialised through the locker so that concurrent instances never race
// for the same inventory number.
func (h *AssetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), lockTimeout)
	defer cancel()

	key := "inventory-number:" + model.InventoryPrefix(req.CompanyCode, req.DeviceTypeCode)
	unlock, err := h.Locks.Lock(ctx, key)
	if err != nil {
		slog.Warn("inventory number lock unavailable", "key", key, "error", err)
		jsonError(w, http.StatusServiceUnavailable, "inventory numbering is busy, try again")
		return
	}
	defer unlock()

	asset, err := store.CreateAsset(ctx, h.DB, model.NewAsset{
		CompanyCode:    req.CompanyCode,
		DeviceTypeCode: req.DeviceTypeCode,
		SerialNumber:   req.SerialNumber,
		VendorID:       req.VendorID,
		Model:          req.Model,
		LocationType:   req.LocationType,
		LocationID:     req.LocationID,
	})
	if err != nil {
		writeStoreError(w, err, "create asset")
		return
	}

	slog.Info("asset created", "user", username(r),
		"inventory_number", asset.InventoryNumber, "serial", asset.SerialNumber,
		"location", asset.LocationName)
	jsonResponse(w, http.StatusCreated, asset)
}

// Get handles GET /api/assets/{id}.
func (h *AssetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "asset")
	if !ok {
		return
	}

	asset, err := store.GetAsset(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get asset")
		return
	}
	if asset == nil {
		jsonError(w, http.StatusNotFound, "asset not found")
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// Scan handles GET /api/assets/scan?number=, the lookup behind QR scanning.
func (h *AssetsHandler) Scan(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(r.URL.Query().Get("number"))
	if number == "" {
		jsonError(w, http.StatusBadRequest, "number is required")
		return
	}
	if !model.ValidInventoryNumber(number) {
		jsonError(w, http.StatusBadRequest, "number must have the form CCC-DD/NNNN")
		return
	}
	asset, err := store.GetAssetByInventoryNumber(r.Context(), h.DB, number)
	if err != nil {
		writeStoreError(w, err, "scan asset")
		return
	}
	if asset == nil {
		jsonError(w, http.StatusNotFound, fmt.Sprintf("no asset with inventory number %s", number))
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// NextNumber handles GET /api/assets/next-number?company_code=&device_type_code=.
// The number is a preview for the registration form and is not reserved.
func (h *AssetsHandler) NextNumber(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	number, err := store.NextInventoryNumber(r.Context(), h.DB, q.Get("company_code"), q.Get("device_type_code"))
	if err != nil {
		writeStoreError(w, err, "preview inventory number")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"inventory_number": number})
}

// Update handles PUT /api/assets/{id}.
func (h *AssetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "asset")
	if !ok {
		return
	}

	var req updateAssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	asset, err := store.UpdateAsset(r.Context(), h.DB, id, model.AssetUpdate{
		SerialNumber: req.SerialNumber,
		VendorID:     req.VendorID,
		Model:        req.Model,
		LocationType: req.LocationType,
		LocationID:   req.LocationID,
	}, h.Config.LocationUpdate, userID(r))
	if err != nil {
		writeStoreError(w, err, "update asset")
		return
	}

	slog.Info("asset updated", "user", username(r), "inventory_number", asset.InventoryNumber)
	jsonResponse(w, http.StatusOK, asset)
}

// Delete handles DELETE /api/assets/{id}. Movements and audit results of the
// asset go with it.
func (h *AssetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "asset")
	if !ok {
		return
	}

	asset, err := store.GetAsset(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get asset")
		return
	}
	if asset == nil {
		jsonError(w, http.StatusNotFound, "asset not found")
		return
	}

	if err := store.DeleteAsset(r.Context(), h.DB, id); err != nil {
		writeStoreError(w, err, "delete asset")
		return
	}

	slog.Info("asset deleted", "user", username(r), "inventory_number", asset.InventoryNumber)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "asset deleted"})
}

// Movements handles GET /api/assets/{id}/movements.
func (h *AssetsHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "asset")
	if !ok {
		return
	}

	movements, err := store.ListAssetMovements(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "list movements")
		return
	}
	if movements == nil {
		movements = []model.Movement{}
	}
	jsonResponse(w, http.StatusOK, movements)
}

// Label handles GET /api/assets/{id}/label?size=30x20.
func (h *AssetsHandler) Label(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "asset")
	if !ok {
		return
	}

	size, err := label.ParseSize(r.URL.Query().Get("size"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	asset, err := store.GetAsset(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get asset")
		return
	}
	if asset == nil {
		jsonError(w, http.StatusNotFound, "asset not found")
		return
	}

	data, err := label.PNG(label.Content{
		InventoryNumber: asset.InventoryNumber,
		SerialNumber:    asset.SerialNumber,
		Vendor:          asset.Vendor,
		Model:           asset.Model,
	}, size)
	if err != nil {
		slog.Error("failed to render label", "inventory_number", asset.InventoryNumber, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to render label")
		return
	}

	w.Header().Set("Content-Type", label.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=label_%s_%s.png",
			strings.ReplaceAll(asset.InventoryNumber, "/", "-"), size.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// MovementsHandler records relocations.
type MovementsHandler struct {
	DB *sql.DB
}

type createMovementRequest struct {
	AssetID int64  `json:"asset_id" validate:"required,gt=0"`
	ToType  string `json:"to_type" validate:"required,oneof=employee warehouse"`
	ToID    int64  `json:"to_id" validate:"required,gt=0"`
}

// Create handles POST /api/movements.
func (h *MovementsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMovementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	movement, err := store.MoveAsset(r.Context(), h.DB, req.AssetID,
		model.Location{Type: req.ToType, ID: req.ToID}, userID(r))
	if err != nil {
		writeStoreError(w, err, "move asset")
		return
	}

	slog.Info("asset moved", "user", username(r),
		"inventory_number", movement.InventoryNumber,
		"from", movement.FromName, "to", movement.ToName)
	jsonResponse(w, http.StatusCreated, movement)
}
