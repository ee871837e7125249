package model

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ezoic/persona/pkg/errors"
)

// Hyperparameter values arrive from YAML grids and Go literals alike, so a
// grid value of 10 may be an int, an int64 or a float64. The helpers below
// coerce them into the type a SetParams implementation needs.

// ParamInt converts value to int. nil converts to 0, meaning "unset".
func ParamInt(name string, value interface{}) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.NewValidationError(name, "must be an integer", value)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, errors.NewValidationError(name, "must be an integer", value)
		}
		return n, nil
	default:
		return 0, errors.NewValidationError(name, "must be an integer", value)
	}
}

// ParamFloat converts value to float64.
func ParamFloat(name string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, errors.NewValidationError(name, "must be a number", value)
		}
		return f, nil
	default:
		return 0, errors.NewValidationError(name, "must be a number", value)
	}
}

// ParamString converts value to string; numbers are formatted, so an integer
// max_features of 3 becomes "3".
func ParamString(name string, value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int, int64:
		return fmt.Sprint(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		return "", errors.NewValidationError(name, "must be a string", value)
	}
}

// ParamBool converts value to bool.
func ParamBool(name string, value interface{}) (bool, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return false, errors.NewValidationError(name, "must be a boolean", value)
}
