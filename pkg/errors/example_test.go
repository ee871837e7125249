package errors_test

import (
	"errors"
	"fmt"
	"io/fs"

	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// Example_customErrorTypes shows extracting a typed error from a wrapped chain.
func Example_customErrorTypes() {
	dimErr := personaErrors.NewDimensionError("EvaluateThresholds", 5, 3, 0)

	wrappedErr := fmt.Errorf("evaluating random forest: %w", dimErr)

	var dimensionErr *personaErrors.DimensionError
	if errors.As(wrappedErr, &dimensionErr) {
		fmt.Printf("Dimension error: expected %d, got %d\n",
			dimensionErr.Expected, dimensionErr.Got)
	}
	if errors.Is(wrappedErr, personaErrors.ErrInvalidInput) {
		fmt.Println("invalid input")
	}

	// Output: Dimension error: expected 5, got 3
	// invalid input
}

// Example_fileErrors shows how loader failures are classified.
func Example_fileErrors() {
	missing := personaErrors.NewFileNotFoundError("personality.csv", nil)
	parse := personaErrors.NewParseError("personality.csv", 12, "Stage_fear", `expected "Yes" or "No"`, nil)

	fmt.Println(errors.Is(missing, fs.ErrNotExist))
	fmt.Println(parse)

	var pe *personaErrors.ParseError
	if errors.As(parse, &pe) {
		fmt.Println(pe.Line, pe.Column)
	}

	// Output: true
	// persona: parse error at personality.csv:12 (column "Stage_fear"): expected "Yes" or "No"
	// 12 Stage_fear
}

// Example_errorComparison contrasts sentinel and typed checks.
func Example_errorComparison() {
	notFittedErr := personaErrors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	valueErr := personaErrors.NewValueError("StandardScaler", "empty matrix")

	var notFitted *personaErrors.NotFittedError
	if errors.As(notFittedErr, &notFitted) {
		fmt.Printf("Model %s is not fitted for %s\n",
			notFitted.ModelName, notFitted.Method)
	}

	var valErr *personaErrors.ValueError
	if errors.As(valueErr, &valErr) {
		fmt.Printf("Value error in %s: %s\n", valErr.Op, valErr.Message)
	}

	fmt.Println(errors.Is(notFittedErr, personaErrors.ErrInvalidInput))

	// Output: Model RandomForestClassifier is not fitted for PredictProba
	// Value error in StandardScaler: empty matrix
	// false
}

// Example_errorLogging shows the message of a wrapped model error.
func Example_errorLogging() {
	baseErr := personaErrors.NewModelError("LogisticRegression", "fit failure",
		personaErrors.ErrEmptyData)

	opErr := fmt.Errorf("grid search candidate 3: %w", baseErr)

	fmt.Printf("Error: %v\n", opErr)

	// Output: Error: grid search candidate 3: persona: LogisticRegression: fit failure: empty data
}
