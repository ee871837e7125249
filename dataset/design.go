package dataset

import (
	"gonum.org/v1/gonum/mat"

	personaErrors "github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/preprocessing"
)

// Design returns the feature matrix, the 0/1 target and the feature names of
// ds. Columns follow Schema order; each flag becomes one 0/1 column named
// "<column>_Yes".
func Design(ds *Dataset) (X *mat.Dense, y *mat.VecDense, names []string, err error) {
	defer personaErrors.Recover(&err, "dataset.Design")

	if ds == nil || ds.Len() == 0 {
		return nil, nil, nil, personaErrors.NewValueError("dataset.Design", "dataset is empty")
	}

	flagNames := ColumnNames(KindFlag)
	categories := make([][]string, len(flagNames))
	for j := range categories {
		categories[j] = []string{FlagNo, FlagYes}
	}
	encoder := preprocessing.NewOneHotEncoderWithCategories(categories, preprocessing.DropIfBinary)

	flags := make([][]string, ds.Len())
	for i, r := range ds.Records {
		flags[i] = []string{flagString(r.StageFear), flagString(r.DrainedAfterSocializing)}
	}
	encoded, err := encoder.FitTransform(flags)
	if err != nil {
		return nil, nil, nil, personaErrors.Wrap(err, "encode flags")
	}
	flagColumns := encoder.GetFeatureNamesOut(flagNames)

	names = make([]string, 0, len(Schema)-1)
	flagIdx := 0
	for _, c := range Schema {
		switch c.Kind {
		case KindNumeric:
			names = append(names, c.Name)
		case KindFlag:
			names = append(names, flagColumns[flagIdx])
			flagIdx++
		}
	}

	X = mat.NewDense(ds.Len(), len(names), nil)
	for i, r := range ds.Records {
		X.SetRow(i, []float64{
			r.TimeSpentAlone,
			encoded.At(i, 0),
			r.SocialEventAttendance,
			r.GoingOutside,
			encoded.At(i, 1),
			r.FriendsCircleSize,
			r.PostFrequency,
		})
	}
	return X, ds.Labels(), names, nil
}

func flagString(b bool) string {
	if b {
		return FlagYes
	}
	return FlagNo
}
