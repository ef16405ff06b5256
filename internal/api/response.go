package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in validation errors.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

type errorBody struct {
	Error  string        `json:"error"`
	Kind   string        `json:"kind,omitempty"`
	Reason string        `json:"reason,omitempty"`
	Assets []model.Asset `json:"assets,omitempty"`
	Codes  []string      `json:"codes,omitempty"`
}

// decodeJSON decodes a JSON request body into target and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(target); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError turns validator output into a readable message.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "required_with":
			msgs = append(msgs, fmt.Sprintf("%s is required with %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// storeStatus maps a core error kind to an HTTP status.
func storeStatus(kind store.Kind) int {
	switch kind {
	case store.KindNotFound:
		return http.StatusNotFound
	case store.KindConflict:
		return http.StatusConflict
	case store.KindCapacityExceeded:
		return http.StatusUnprocessableEntity
	default:
		// InvalidInput, StateConflict and OutOfScope.
		return http.StatusBadRequest
	}
}

// writeStoreError reports err to the client. Core errors keep their kind,
// reason and payload; anything else is logged and hidden behind a 500.
func writeStoreError(w http.ResponseWriter, err error, action string) {
	var se *store.Error
	if errors.As(err, &se) {
		jsonResponse(w, storeStatus(se.Kind), errorBody{
			Error:  se.Error(),
			Kind:   string(se.Kind),
			Reason: se.Reason,
			Assets: se.Assets,
			Codes:  se.Codes,
		})
		return
	}
	slog.Error("failed to "+action, "error", err)
	jsonError(w, http.StatusInternalServerError, "failed to "+action)
}

// pathID parses the {id} path value.
func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

// userID returns the authenticated user's id for audit columns.
func userID(r *http.Request) *int64 {
	claims := GetClaims(r.Context())
	if claims == nil {
		return nil
	}
	id := claims.UserID
	return &id
}

// username returns the authenticated user's name for log lines.
func username(r *http.Request) string {
	if claims := GetClaims(r.Context()); claims != nil {
		return claims.Username
	}
	return ""
}
