package validators

import (
	"net/http"
	"strconv"

	pkgerrors "github.com/sellpoint/pos-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter, clamping checks to
// the supplied bounds. A missing parameter returns the fallback.
func ParseQueryInt(r *http.Request, key string, fallback, min, max int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "please enter valid input data").
			WithDetails(map[string]string{key: "must be an integer"})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "please enter valid input data").
			WithDetails(map[string]string{key: "is out of range"})
	}
	return value, nil
}
