// Package tree implements a CART decision tree classifier for binary targets.
//
// The tree is the base learner of ensemble.RandomForestClassifier: it can be
// fit on an index multiset (a bootstrap sample) without copying the design
// matrix, considers a seeded random subset of features at each split, and
// records impurity-decrease feature importances.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/core/model"
	personaErrors "github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/pkg/log"
)

const (
	criterionGini    = "gini"
	criterionEntropy = "entropy"

	// nClasses is fixed: class 0 is the negative label, class 1 the positive.
	nClasses = 2
)

// Max-features policies.
const (
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
	MaxFeaturesAll  = "all"
)

// TreeNode represents a node in the decision tree
type TreeNode struct {
	IsLeaf      bool      // Whether this is a leaf node
	Feature     int       // Feature index for split (internal nodes)
	Threshold   float64   // Threshold value for split (internal nodes)
	Left        *TreeNode // Left child (values <= threshold)
	Right       *TreeNode // Right child (values > threshold)
	ClassCounts [nClasses]int
	Impurity    float64
	NSamples    int
	Depth       int
}

// Proba returns the class frequencies of the samples that reached the node.
func (n *TreeNode) Proba() [nClasses]float64 {
	total := n.ClassCounts[0] + n.ClassCounts[1]
	if total == 0 {
		return [nClasses]float64{0.5, 0.5}
	}
	return [nClasses]float64{
		float64(n.ClassCounts[0]) / float64(total),
		float64(n.ClassCounts[1]) / float64(total),
	}
}

// DecisionTreeClassifier implements a decision tree for binary classification.
// Labels must be 0 or 1; PredictProba always returns two columns.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion           string  // "gini" or "entropy"
	maxDepth            int     // Maximum depth of tree (0 = unlimited)
	minSamplesSplit     int     // Minimum samples to split a node
	minSamplesLeaf      int     // Minimum samples in a leaf
	maxFeatures         string  // "sqrt", "log2", "all" or an integer
	minImpurityDecrease float64 // Minimum impurity decrease for split
	randomState         int64

	tree_               *TreeNode
	nFeatures_          int
	featureImportances_ []float64

	// per-fit scratch
	rng         *rand.Rand
	kFeatures   int
	x           mat.Matrix
	y           []int
	rootSamples int
}

// DecisionTreeClassifierOption is a functional option
type DecisionTreeClassifierOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new decision tree classifier
func NewDecisionTreeClassifier(opts ...DecisionTreeClassifierOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       criterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     MaxFeaturesAll,
	}

	for _, opt := range opts {
		opt(dt)
	}

	return dt
}

// WithCriterion sets the splitting criterion
func WithCriterion(criterion string) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth sets the maximum tree depth; 0 means unlimited.
func WithMaxDepth(depth int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets minimum samples to split
func WithMinSamplesSplit(n int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets minimum samples in leaf
func WithMinSamplesLeaf(n int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets the number of features drawn at every split.
func WithMaxFeatures(maxFeatures string) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = maxFeatures
	}
}

// WithMinImpurityDecrease sets the minimum weighted impurity decrease of a split.
func WithMinImpurityDecrease(v float64) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minImpurityDecrease = v
	}
}

// WithDTRandomState sets the random seed
func WithDTRandomState(seed int64) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// ResolveMaxFeatures converts a max-features policy to a feature count for
// nFeatures inputs.
func ResolveMaxFeatures(policy string, nFeatures int) (int, error) {
	var k int
	switch policy {
	case MaxFeaturesAll, "":
		k = nFeatures
	case MaxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	default:
		n, err := strconv.Atoi(policy)
		if err != nil || n < 1 || n > nFeatures {
			return 0, personaErrors.NewValidationError("max_features",
				"must be \"sqrt\", \"log2\", \"all\" or an integer in [1, n_features]", policy)
		}
		k = n
	}
	if k < 1 {
		k = 1
	}
	return k, nil
}

func (dt *DecisionTreeClassifier) validateParams() error {
	if dt.criterion != criterionGini && dt.criterion != criterionEntropy {
		return personaErrors.NewValidationError("criterion", "must be \"gini\" or \"entropy\"", dt.criterion)
	}
	if dt.maxDepth < 0 {
		return personaErrors.NewValidationError("max_depth", "must be >= 0", dt.maxDepth)
	}
	if dt.minSamplesSplit < 2 {
		return personaErrors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return personaErrors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	}
	return nil
}

// Fit trains the decision tree on all rows of X.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer personaErrors.Recover(&err, "DecisionTreeClassifier.Fit")
	nSamples, _ := X.Dims()
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	return dt.FitIndices(X, y, indices)
}

// FitIndices trains the tree on the rows of X named by indices. Indices may
// repeat, which is how bootstrap samples are passed without copying X.
func (dt *DecisionTreeClassifier) FitIndices(X, y mat.Matrix, indices []int) (err error) {
	defer personaErrors.Recover(&err, "DecisionTreeClassifier.FitIndices")

	if err := dt.validateParams(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples != yRows {
		return personaErrors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return personaErrors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yCols, 1)
	}
	if len(indices) == 0 || nFeatures == 0 {
		return personaErrors.NewModelError("DecisionTreeClassifier.Fit", "empty data", personaErrors.ErrEmptyData)
	}

	labels := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		switch v := y.At(i, 0); v {
		case 0, 1:
			labels[i] = int(v)
		default:
			return personaErrors.NewValidationError("y", "labels must be 0 or 1", v)
		}
	}

	k, err := ResolveMaxFeatures(dt.maxFeatures, nFeatures)
	if err != nil {
		return err
	}

	dt.state.Reset()
	dt.nFeatures_ = nFeatures
	dt.featureImportances_ = make([]float64, nFeatures)
	dt.kFeatures = k
	dt.rng = rand.New(rand.NewPCG(uint64(dt.randomState), uint64(dt.randomState)^0x9e3779b97f4a7c15))
	dt.x = X
	dt.y = labels
	dt.rootSamples = len(indices)

	dt.tree_ = dt.buildTree(append([]int(nil), indices...), 0)

	if total := floats.Sum(dt.featureImportances_); total > 0 {
		floats.Scale(1/total, dt.featureImportances_)
	}

	dt.x, dt.y, dt.rng = nil, nil, nil

	dt.state.SetDimensions(nFeatures, len(indices))
	dt.state.SetFitted()

	log.GetLoggerWithName("DecisionTreeClassifier").Debug("Tree built",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(indices),
		log.FeaturesKey, nFeatures,
		"tree.depth", dt.GetDepth(),
		"tree.leaves", dt.GetNLeaves(),
	)
	return nil
}

func (dt *DecisionTreeClassifier) countClasses(indices []int) [nClasses]int {
	var counts [nClasses]int
	for _, idx := range indices {
		counts[dt.y[idx]]++
	}
	return counts
}

// buildTree recursively builds the decision tree
func (dt *DecisionTreeClassifier) buildTree(indices []int, depth int) *TreeNode {
	counts := dt.countClasses(indices)
	node := &TreeNode{
		ClassCounts: counts,
		Impurity:    dt.impurity(counts),
		NSamples:    len(indices),
		Depth:       depth,
	}

	if dt.shouldStop(node) {
		node.IsLeaf = true
		return node
	}

	feature, threshold, ok := dt.findBestSplit(indices, node.Impurity)
	if !ok {
		node.IsLeaf = true
		return node
	}

	var left, right []int
	for _, idx := range indices {
		if dt.x.At(idx, feature) <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = dt.buildTree(left, depth+1)
	node.Right = dt.buildTree(right, depth+1)

	dt.featureImportances_[feature] += float64(node.NSamples)*node.Impurity -
		float64(node.Left.NSamples)*node.Left.Impurity -
		float64(node.Right.NSamples)*node.Right.Impurity

	return node
}

// shouldStop checks stopping criteria
func (dt *DecisionTreeClassifier) shouldStop(node *TreeNode) bool {
	if dt.maxDepth > 0 && node.Depth >= dt.maxDepth {
		return true
	}
	if node.NSamples < dt.minSamplesSplit || node.NSamples < 2*dt.minSamplesLeaf {
		return true
	}
	return node.Impurity == 0.0
}

// impurity calculates node impurity using Gini or Entropy
func (dt *DecisionTreeClassifier) impurity(counts [nClasses]int) float64 {
	total := counts[0] + counts[1]
	if total == 0 {
		return 0.0
	}

	impurity := 0.0
	if dt.criterion == criterionEntropy {
		for _, count := range counts {
			if count > 0 {
				p := float64(count) / float64(total)
				impurity -= p * math.Log2(p)
			}
		}
		return impurity
	}

	sumSquared := 0.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		sumSquared += p * p
	}
	return 1.0 - sumSquared
}

// candidateFeatures draws the features examined at one split.
func (dt *DecisionTreeClassifier) candidateFeatures() []int {
	if dt.kFeatures >= dt.nFeatures_ {
		features := make([]int, dt.nFeatures_)
		for j := range features {
			features[j] = j
		}
		return features
	}
	return dt.rng.Perm(dt.nFeatures_)[:dt.kFeatures]
}

// findBestSplit scans every midpoint between distinct sorted values of each
// candidate feature and keeps the largest weighted impurity decrease.
func (dt *DecisionTreeClassifier) findBestSplit(indices []int, parentImpurity float64) (int, float64, bool) {
	n := len(indices)
	bestFeature := -1
	bestThreshold := 0.0
	bestDecrease := 0.0

	sorted := make([]int, n)
	parentCounts := dt.countClasses(indices)

	for _, feature := range dt.candidateFeatures() {
		copy(sorted, indices)
		sort.SliceStable(sorted, func(a, b int) bool {
			return dt.x.At(sorted[a], feature) < dt.x.At(sorted[b], feature)
		})

		var leftCounts [nClasses]int
		for i := 0; i < n-1; i++ {
			leftCounts[dt.y[sorted[i]]]++

			v1 := dt.x.At(sorted[i], feature)
			v2 := dt.x.At(sorted[i+1], feature)
			if v1 == v2 {
				continue
			}

			nLeft := i + 1
			nRight := n - nLeft
			if nLeft < dt.minSamplesLeaf || nRight < dt.minSamplesLeaf {
				continue
			}

			rightCounts := [nClasses]int{
				parentCounts[0] - leftCounts[0],
				parentCounts[1] - leftCounts[1],
			}
			weighted := (float64(nLeft)*dt.impurity(leftCounts) +
				float64(nRight)*dt.impurity(rightCounts)) / float64(n)
			decrease := parentImpurity - weighted

			if decrease > bestDecrease {
				bestDecrease = decrease
				bestFeature = feature
				bestThreshold = (v1 + v2) / 2.0
			}
		}
	}

	if bestFeature < 0 {
		return -1, 0, false
	}
	// min_impurity_decrease is weighted by the node's share of the root sample.
	if float64(n)/float64(dt.rootSamples)*bestDecrease < dt.minImpurityDecrease {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (dt *DecisionTreeClassifier) leaf(X mat.Matrix, i int) *TreeNode {
	node := dt.tree_
	for !node.IsLeaf {
		if X.At(i, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

func (dt *DecisionTreeClassifier) checkPredictInput(X mat.Matrix, method string) error {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", method); err != nil {
		return err
	}
	if _, c := X.Dims(); c != dt.nFeatures_ {
		return personaErrors.NewDimensionError("DecisionTreeClassifier."+method, dt.nFeatures_, c, 1)
	}
	return nil
}

// Predict returns the majority class (0 or 1) of the leaf each row falls in.
// Ties go to class 0.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "DecisionTreeClassifier.Predict")
	if err := dt.checkPredictInput(X, "Predict"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		counts := dt.leaf(X, i).ClassCounts
		if counts[1] > counts[0] {
			predictions.Set(i, 0, 1)
		}
	}
	return predictions, nil
}

// PredictProba returns an (n_samples, 2) matrix of leaf class frequencies.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "DecisionTreeClassifier.PredictProba")
	if err := dt.checkPredictInput(X, "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	probas := mat.NewDense(nSamples, nClasses, nil)
	for i := 0; i < nSamples; i++ {
		p := dt.leaf(X, i).Proba()
		probas.SetRow(i, p[:])
	}
	return probas, nil
}

// FeatureImportances returns the normalised impurity decrease per feature.
func (dt *DecisionTreeClassifier) FeatureImportances() ([]float64, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), dt.featureImportances_...), nil
}

// GetParams returns the model hyperparameters
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             dt.criterion,
		"max_depth":             dt.maxDepth,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"max_features":          dt.maxFeatures,
		"min_impurity_decrease": dt.minImpurityDecrease,
		"random_state":          dt.randomState,
	}
}

// GetDepth returns the depth of the tree
func (dt *DecisionTreeClassifier) GetDepth() int {
	return maxDepth(dt.tree_)
}

func maxDepth(node *TreeNode) int {
	if node == nil {
		return 0
	}
	if node.IsLeaf {
		return node.Depth
	}
	return max(maxDepth(node.Left), maxDepth(node.Right))
}

// GetNLeaves returns the number of leaf nodes
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	return countLeaves(dt.tree_)
}

func countLeaves(node *TreeNode) int {
	if node == nil {
		return 0
	}
	if node.IsLeaf {
		return 1
	}
	return countLeaves(node.Left) + countLeaves(node.Right)
}
