package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/core/model"
	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// Drop policies for OneHotEncoder.
const (
	DropNone     = ""
	DropFirst    = "first"
	DropIfBinary = "if_binary"
)

// OneHotEncoder encodes string categories as 0/1 indicator columns.
//
// Categories are learned per feature and sorted. With Drop set to
// DropIfBinary, features with exactly two categories produce a single column
// for the second category (for Yes/No flags, the "Yes" column). Unknown
// categories at Transform time encode as all zeros.
type OneHotEncoder struct {
	model.BaseEstimator

	// Drop is DropNone, DropFirst or DropIfBinary.
	Drop string

	// Categories holds the sorted categories per feature.
	Categories [][]string

	// CategoryToIdx maps a category to its index within Categories[j].
	CategoryToIdx []map[string]int

	// dropped[j] is the index of the category without an output column, or -1.
	dropped []int

	NFeatures int

	// NOutputs is the number of output columns.
	NOutputs int

	fixed bool
}

// NewOneHotEncoder creates an encoder that learns categories during Fit.
//
//	encoder := preprocessing.NewOneHotEncoder()
//	encoder.Drop = preprocessing.DropIfBinary
//	encoded, err := encoder.FitTransform(flags)
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

// NewOneHotEncoderWithCategories creates an encoder with a fixed category
// list per feature, so that partitions lacking a category still encode to the
// same columns.
func NewOneHotEncoderWithCategories(categories [][]string, drop string) *OneHotEncoder {
	fixed := make([][]string, len(categories))
	for j, cats := range categories {
		fixed[j] = append([]string(nil), cats...)
		sort.Strings(fixed[j])
	}
	return &OneHotEncoder{Categories: fixed, Drop: drop, fixed: true}
}

// Fit learns the categories of every feature.
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer personaErrors.Recover(&err, "OneHotEncoder.Fit")
	if len(data) == 0 {
		return personaErrors.NewModelError("OneHotEncoder.Fit", "empty data", personaErrors.ErrEmptyData)
	}
	if len(data[0]) == 0 {
		return personaErrors.NewModelError("OneHotEncoder.Fit", "empty features", personaErrors.ErrEmptyData)
	}
	switch e.Drop {
	case DropNone, DropFirst, DropIfBinary:
	default:
		return personaErrors.NewValidationError("drop", "must be empty, \"first\" or \"if_binary\"", e.Drop)
	}

	nFeatures := len(data[0])
	for i, row := range data {
		if len(row) != nFeatures {
			return personaErrors.NewDimensionError("OneHotEncoder.Fit", nFeatures, len(row), i)
		}
	}

	if e.fixed {
		if len(e.Categories) != nFeatures {
			return personaErrors.NewDimensionError("OneHotEncoder.Fit", len(e.Categories), nFeatures, 1)
		}
	} else {
		e.Categories = make([][]string, nFeatures)
		for j := 0; j < nFeatures; j++ {
			seen := make(map[string]bool)
			var categories []string
			for _, row := range data {
				if !seen[row[j]] {
					seen[row[j]] = true
					categories = append(categories, row[j])
				}
			}
			sort.Strings(categories)
			e.Categories[j] = categories
		}
	}

	e.NFeatures = nFeatures
	e.CategoryToIdx = make([]map[string]int, nFeatures)
	e.dropped = make([]int, nFeatures)
	e.NOutputs = 0
	for j, categories := range e.Categories {
		e.CategoryToIdx[j] = make(map[string]int, len(categories))
		for idx, category := range categories {
			e.CategoryToIdx[j][category] = idx
		}

		e.dropped[j] = -1
		switch {
		case e.Drop == DropFirst && len(categories) > 0:
			e.dropped[j] = 0
		case e.Drop == DropIfBinary && len(categories) == 2:
			e.dropped[j] = 0
		}

		e.NOutputs += e.width(j)
	}

	e.SetFitted()
	return nil
}

func (e *OneHotEncoder) width(j int) int {
	if e.dropped[j] >= 0 {
		return len(e.Categories[j]) - 1
	}
	return len(e.Categories[j])
}

// Transform encodes data with the fitted categories.
func (e *OneHotEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "OneHotEncoder.Transform")
	if !e.IsFitted() {
		return nil, personaErrors.NewNotFittedError("OneHotEncoder", "Transform")
	}

	if len(data) == 0 {
		return &mat.Dense{}, nil
	}

	result := mat.NewDense(len(data), e.NOutputs, nil)
	for i, row := range data {
		if len(row) != e.NFeatures {
			return nil, personaErrors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(row), 1)
		}

		offset := 0
		for j, category := range row {
			if idx, ok := e.CategoryToIdx[j][category]; ok && idx != e.dropped[j] {
				if e.dropped[j] >= 0 && idx > e.dropped[j] {
					idx--
				}
				result.Set(i, offset+idx, 1.0)
			}
			offset += e.width(j)
		}
	}

	return result, nil
}

// FitTransform fits on data and returns data encoded.
func (e *OneHotEncoder) FitTransform(data [][]string) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "OneHotEncoder.FitTransform")
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// GetFeatureNamesOut returns "<feature>_<category>" for every output column.
// inputFeatures defaults to x0, x1, ... when nil.
func (e *OneHotEncoder) GetFeatureNamesOut(inputFeatures []string) []string {
	if !e.IsFitted() {
		return nil
	}

	var outputFeatures []string
	for j, categories := range e.Categories {
		name := fmt.Sprintf("x%d", j)
		if j < len(inputFeatures) {
			name = inputFeatures[j]
		}
		for idx, category := range categories {
			if idx == e.dropped[j] {
				continue
			}
			outputFeatures = append(outputFeatures, name+"_"+category)
		}
	}
	return outputFeatures
}
