package dataset

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	personaErrors "github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/preprocessing"
)

// ColumnReport records how one column was imputed.
type ColumnReport struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Strategy string `json:"strategy"`
	Missing  int    `json:"missing"`
	Fill     string `json:"fill"`
}

// CleaningReport summarises Clean.
type CleaningReport struct {
	Rows    int            `json:"rows"`
	Columns []ColumnReport `json:"columns"`
}

// TotalMissing returns the number of cells that were filled.
func (r *CleaningReport) TotalMissing() int {
	total := 0
	for _, c := range r.Columns {
		total += c.Missing
	}
	return total
}

// Dataset is an ordered sequence of cleaned records.
type Dataset struct {
	Records []Record
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Subset returns the records at indices, in that order.
func (d *Dataset) Subset(indices []int) (*Dataset, error) {
	out := make([]Record, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(d.Records) {
			return nil, personaErrors.NewValidationError("indices", "index out of range", idx)
		}
		out[i] = d.Records[idx]
	}
	return &Dataset{Records: out}, nil
}

// Labels returns the 0/1 target vector.
func (d *Dataset) Labels() *mat.VecDense {
	y := mat.NewVecDense(len(d.Records), nil)
	for i, r := range d.Records {
		y.SetVec(i, r.Personality.Float())
	}
	return y
}

// Clean fills every missing cell of frame. Numeric columns take the median
// of their observed values; flag and label columns take their most frequent
// observed value, ties going to the value seen first. A column without any
// observed value cannot be filled and is reported as a ParseError.
func Clean(frame *Frame) (_ *Dataset, _ *CleaningReport, err error) {
	defer personaErrors.Recover(&err, "dataset.Clean")

	if frame == nil || frame.Len() == 0 {
		source := ""
		if frame != nil {
			source = frame.Source
		}
		return nil, nil, personaErrors.NewParseError(source, 0, "", "no data rows", personaErrors.ErrEmptyData)
	}

	missing := frame.MissingCounts()
	for _, c := range Schema {
		if missing[c.Name] == frame.Len() {
			return nil, nil, personaErrors.NewParseError(frame.Source, 0, c.Name,
				"column has no observed values to impute from", nil)
		}
	}

	var numericCols, categoricalCols []int
	for j, c := range Schema {
		if c.Kind == KindNumeric {
			numericCols = append(numericCols, j)
		} else {
			categoricalCols = append(categoricalCols, j)
		}
	}

	numeric := mat.NewDense(frame.Len(), len(numericCols), nil)
	categorical := make([][]string, frame.Len())
	for i, row := range frame.Rows {
		for k, j := range numericCols {
			v := math.NaN()
			if row[j] != "" {
				// LoadReader already rejected unparseable cells.
				v, _ = strconv.ParseFloat(row[j], 64)
			}
			numeric.Set(i, k, v)
		}
		cats := make([]string, len(categoricalCols))
		for k, j := range categoricalCols {
			cats[k] = row[j]
		}
		categorical[i] = cats
	}

	numImputer := preprocessing.NewSimpleImputer(preprocessing.StrategyMedian)
	filledNumeric, err := numImputer.FitTransform(numeric)
	if err != nil {
		return nil, nil, personaErrors.Wrap(err, "impute numeric columns")
	}
	catImputer := preprocessing.NewCategoricalImputer()
	filledCategorical, err := catImputer.FitTransform(categorical)
	if err != nil {
		return nil, nil, personaErrors.Wrap(err, "impute categorical columns")
	}

	report := &CleaningReport{Rows: frame.Len(), Columns: make([]ColumnReport, len(Schema))}
	for k, j := range numericCols {
		report.Columns[j] = ColumnReport{
			Name:     Schema[j].Name,
			Kind:     Schema[j].Kind.String(),
			Strategy: preprocessing.StrategyMedian,
			Missing:  numImputer.MissingCounts[k],
			Fill:     strconv.FormatFloat(numImputer.Statistics[k], 'g', -1, 64),
		}
	}
	for k, j := range categoricalCols {
		report.Columns[j] = ColumnReport{
			Name:     Schema[j].Name,
			Kind:     Schema[j].Kind.String(),
			Strategy: preprocessing.StrategyMostFrequent,
			Missing:  catImputer.MissingCounts[k],
			Fill:     catImputer.Statistics[k],
		}
	}

	records := make([]Record, frame.Len())
	for i := range records {
		values := make([]float64, len(Schema))
		for k, j := range numericCols {
			values[j] = filledNumeric.At(i, k)
		}
		cells := make([]string, len(Schema))
		for k, j := range categoricalCols {
			cells[j] = filledCategorical[i][k]
		}
		records[i] = newRecord(values, cells)
	}
	return &Dataset{Records: records}, report, nil
}

// newRecord builds a Record from Schema-ordered numeric values and
// categorical cells.
func newRecord(values []float64, cells []string) Record {
	stageFear, _ := ParseFlag(cells[1])
	drained, _ := ParseFlag(cells[4])
	label, _ := ParseLabel(cells[7])
	return Record{
		TimeSpentAlone:          values[0],
		StageFear:               stageFear,
		SocialEventAttendance:   values[2],
		GoingOutside:            values[3],
		DrainedAfterSocializing: drained,
		FriendsCircleSize:       values[5],
		PostFrequency:           values[6],
		Personality:             label,
	}
}
