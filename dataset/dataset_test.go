package dataset_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/dataset"
	personaErrors "github.com/ezoic/persona/pkg/errors"
)

const header = "Time_spent_Alone,Stage_fear,Social_event_attendance,Going_outside,Drained_after_socializing,Friends_circle_size,Post_frequency,Personality\n"

const survey = header +
	"4,No,4,6,No,13,5,Extrovert\n" +
	"9,Yes,0,0,Yes,0,3,Introvert\n" +
	"9,Yes,1,2,Yes,5,2,Introvert\n" +
	",No,6,7,No,14,8,Extrovert\n" +
	"3,,9,,No,8,,Extrovert\n" +
	"1,No,7,5,NA,,6,\n"

func mustLoad(t *testing.T, content string) *dataset.Frame {
	t.Helper()
	frame, err := dataset.LoadReader(strings.NewReader(content), "survey.csv")
	require.NoError(t, err)
	return frame
}

func TestLoadReader(t *testing.T) {
	frame := mustLoad(t, survey)

	assert.Equal(t, 6, frame.Len())
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7}, frame.Lines)
	assert.Equal(t, []string{"4", "9", "9", "", "3", "1"}, frame.Column(dataset.ColTimeSpentAlone))
	assert.Nil(t, frame.Column("Unknown"))

	missing := frame.MissingCounts()
	assert.Equal(t, 1, missing[dataset.ColTimeSpentAlone])
	assert.Equal(t, 1, missing[dataset.ColStageFear])
	assert.Equal(t, 1, missing[dataset.ColDrainedAfterSocializing])
	assert.Equal(t, 1, missing[dataset.ColPersonality])
	assert.Equal(t, 0, missing[dataset.ColSocialEventAttendance])
}

func TestLoadReader_ReorderedAndExtraColumns(t *testing.T) {
	content := "id,Personality,Post_frequency,Friends_circle_size,Drained_after_socializing,Going_outside,Social_event_attendance,Stage_fear,Time_spent_Alone\n" +
		"1,Introvert,2,3,Yes,1,0,Yes,10\n"
	frame := mustLoad(t, content)

	require.Equal(t, 1, frame.Len())
	assert.Equal(t, []string{"10", "Yes", "0", "1", "Yes", "3", "2", "Introvert"}, frame.Rows[0])
}

func TestLoadReader_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
		column  string
	}{
		{"empty input", "", 1, ""},
		{"missing column", "Time_spent_Alone,Stage_fear\n1,Yes\n", 1, dataset.ColSocialEventAttendance},
		{"bad number", header + "x,No,4,6,No,13,5,Extrovert\n", 2, dataset.ColTimeSpentAlone},
		{"infinite number", header + "4,No,Inf,6,No,13,5,Extrovert\n", 2, dataset.ColSocialEventAttendance},
		{"bad flag", header + "4,No,4,6,No,13,5,Extrovert\n4,Maybe,4,6,No,13,5,Extrovert\n", 3, dataset.ColStageFear},
		{"bad label", header + "4,No,4,6,No,13,5,Ambivert\n", 2, dataset.ColPersonality},
		{"ragged row", header + "4,No,4,6,No,13,5\n", 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dataset.LoadReader(strings.NewReader(tt.content), "survey.csv")
			require.Error(t, err)

			var pe *personaErrors.ParseError
			require.True(t, personaErrors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.column, pe.Column)
			assert.Equal(t, "survey.csv", pe.Source)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personality.csv")
	require.NoError(t, os.WriteFile(path, []byte(survey), 0o600))

	frame, err := dataset.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, frame.Len())
	assert.Equal(t, path, frame.Source)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := dataset.Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	var fnf *personaErrors.FileNotFoundError
	assert.True(t, personaErrors.As(err, &fnf))
	assert.True(t, personaErrors.Is(err, os.ErrNotExist))
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	_, err := dataset.Load(dir)
	require.Error(t, err)

	var fnf *personaErrors.FileNotFoundError
	require.True(t, personaErrors.As(err, &fnf))
	assert.Equal(t, dir, fnf.Path)
	assert.True(t, personaErrors.Is(err, os.ErrNotExist))
}

func TestClean(t *testing.T) {
	ds, report, err := dataset.Clean(mustLoad(t, survey))
	require.NoError(t, err)
	require.Equal(t, 6, ds.Len())

	// median of {4, 9, 9, 3, 1} = 4
	assert.Equal(t, 4.0, ds.Records[3].TimeSpentAlone)
	// median of {6, 0, 2, 7, 5} = 5
	assert.Equal(t, 5.0, ds.Records[4].GoingOutside)
	// median of {5, 3, 2, 8, 6} = 5
	assert.Equal(t, 5.0, ds.Records[4].PostFrequency)
	// No appears 3 times against 2 for Yes
	assert.False(t, ds.Records[4].StageFear)
	// No is the majority for Drained as well
	assert.False(t, ds.Records[5].DrainedAfterSocializing)
	assert.Equal(t, dataset.Extrovert, ds.Records[5].Personality)

	assert.Equal(t, 6, report.Rows)
	assert.Equal(t, 7, report.TotalMissing())
	require.Len(t, report.Columns, len(dataset.Schema))
	assert.Equal(t, dataset.ColTimeSpentAlone, report.Columns[0].Name)
	assert.Equal(t, "4", report.Columns[0].Fill)
	assert.Equal(t, "median", report.Columns[0].Strategy)
	assert.Equal(t, "No", report.Columns[4].Fill)
	assert.Equal(t, "most_frequent", report.Columns[7].Strategy)
	assert.Equal(t, "Extrovert", report.Columns[7].Fill)
}

func TestClean_Errors(t *testing.T) {
	_, _, err := dataset.Clean(mustLoad(t, header))
	var pe *personaErrors.ParseError
	assert.True(t, personaErrors.As(err, &pe))

	allMissing := header +
		"4,No,,6,No,13,5,Extrovert\n" +
		"9,Yes,,0,Yes,0,3,Introvert\n"
	_, _, err = dataset.Clean(mustLoad(t, allMissing))
	require.True(t, personaErrors.As(err, &pe))
	assert.Equal(t, dataset.ColSocialEventAttendance, pe.Column)

	_, _, err = dataset.Clean(nil)
	assert.Error(t, err)
}

func TestSubsetAndLabels(t *testing.T) {
	ds, _, err := dataset.Clean(mustLoad(t, survey))
	require.NoError(t, err)

	sub, err := ds.Subset([]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, sub.Labels().RawVector().Data)

	_, err = ds.Subset([]int{6})
	assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput))
}

func TestDesign(t *testing.T) {
	ds, _, err := dataset.Clean(mustLoad(t, survey))
	require.NoError(t, err)

	X, y, names, err := dataset.Design(ds)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Time_spent_Alone",
		"Stage_fear_Yes",
		"Social_event_attendance",
		"Going_outside",
		"Drained_after_socializing_Yes",
		"Friends_circle_size",
		"Post_frequency",
	}, names)

	r, c := X.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 7, c)
	assert.Equal(t, []float64{9, 1, 0, 0, 1, 0, 3}, mat.Row(nil, 1, X))
	assert.Equal(t, []float64{1, 0, 0, 0, 1, 1}, y.RawVector().Data)

	_, _, _, err = dataset.Design(&dataset.Dataset{})
	assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput))
}

func TestClassDistribution(t *testing.T) {
	ds, _, err := dataset.Clean(mustLoad(t, survey))
	require.NoError(t, err)

	counts := dataset.ClassDistribution(ds)
	assert.Equal(t, dataset.ClassCounts{Extrovert: 4, Introvert: 2}, counts)
	assert.InDelta(t, 2.0/3.0, counts.Proportion(dataset.Extrovert), 1e-12)
	assert.True(t, math.IsNaN(dataset.ClassCounts{}.Proportion(dataset.Introvert)))
}

func TestDescribeAndCorrelation(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})
	y := mat.NewVecDense(4, []float64{0, 0, 1, 1})

	summary, err := dataset.Describe(X, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2.5, summary[0].Mean)
	assert.Equal(t, 2.5, summary[0].Median)
	assert.Equal(t, 1.0, summary[0].Min)
	assert.Equal(t, 4.0, summary[0].Max)
	assert.Equal(t, 0.0, summary[1].Std)

	corr, err := dataset.CorrelationMatrix(X, y)
	require.NoError(t, err)
	assert.Equal(t, 3, corr.SymmetricDim())
	assert.InDelta(t, 1.0, corr.At(0, 0), 1e-12)
	assert.InDelta(t, 0.894427191, corr.At(0, 2), 1e-9)
	assert.True(t, math.IsNaN(corr.At(1, 2)))

	_, err = dataset.Describe(X, []string{"a"})
	assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput))
}
