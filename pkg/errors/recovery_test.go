package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fitWithPanic(value interface{}) (err error) {
	defer Recover(&err, "RandomForestClassifier.Fit")
	panic(value)
}

func TestRecover(t *testing.T) {
	err := fitWithPanic("index out of range")
	require.Error(t, err)

	var pe *PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "RandomForestClassifier.Fit", pe.Operation)
	assert.Equal(t, "index out of range", pe.PanicValue)
	assert.NotEmpty(t, pe.StackTrace)
	assert.Equal(t, "panic in RandomForestClassifier.Fit: index out of range", pe.Error())
	assert.Contains(t, pe.String(), "Stack trace:")
}

func TestRecover_NoPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "LogisticRegression.Fit")
		return nil
	}
	assert.NoError(t, fit())
}

func TestRecover_KeepsEarlierError(t *testing.T) {
	cause := NewValidationError("C", "must be positive", -1.0)
	fit := func() (err error) {
		defer Recover(&err, "LogisticRegression.Fit")
		err = cause
		panic("solver diverged")
	}

	err := fit()
	assert.Contains(t, err.Error(), "panic in LogisticRegression.Fit: solver diverged")
	assert.True(t, errors.Is(err, ErrInvalidInput), "the earlier error stays in the chain")
}

func TestSafeExecute(t *testing.T) {
	err := SafeExecute("fold 3", func() error {
		var folds []int
		_ = folds[3]
		return nil
	})
	var pe *PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "fold 3", pe.Operation)

	cause := New("fit failed")
	assert.Equal(t, cause, SafeExecute("fold 0", func() error { return cause }))
}
