// Package arborist is the top-level facade spec §6 names: ingest a
// frame, fit a forest, and read predictions/quantiles/forest-weights
// back off the packed result, without callers ever touching
// internal/* directly.
//
// Grounded on ebooster.go's NewEBooster/(EBooster).PredictValue public
// call shape (a params struct in, a model out; predict takes the
// model's features back in) and EBooster.Save/LoadModel's
// encoding/json persistence, adapted to the typed, explicit-error
// core the rest of this module follows.
package arborist

import (
	"encoding/json"
	"os"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"github.com/hawkberry/Arborist/internal/forest"
	"github.com/hawkberry/Arborist/internal/forestutil"
	"github.com/hawkberry/Arborist/internal/frame"
	"github.com/hawkberry/Arborist/internal/leaf"
	"github.com/hawkberry/Arborist/internal/sampler"
	"github.com/hawkberry/Arborist/internal/train"
)

// TrainConfig is spec §6's training configuration: samples per tree and
// replacement policy, candidate scheduling, stopping rules, leaf
// collapsing, split-quantile and monotonicity knobs, and the
// concurrency/tree-block shape.
type TrainConfig = train.Config

// Response is the training target: a numeric response, or a
// categorical one with optional per-category weights.
type Response = train.Response

// RNG is the randomness contract Fit threads through sampling,
// candidate scheduling and classification tie-breaking.
type RNG = sampler.RNG

// Model is the persistable result of Fit: the packed forest plus its
// per-tree leaf sample blocks, bundled the way EBooster.Save/LoadModel
// bundle a trained model.
type Model struct {
	Forest *forest.Forest
	Leaves *leaf.LeafSet
}

// Fit ingests nRow rows of numeric and factor predictors and trains a
// forest against response, per cfg. It returns the packed forest, its
// leaf sample blocks, and the accumulated per-predictor information
// gain (raw material for a variable-importance score).
func Fit(cfg TrainConfig, nRow int, numeric []frame.NumericSource, factor []frame.FactorSource, response Response, rng RNG) (*forest.Forest, *leaf.LeafSet, []float64, error) {
	f, err := frame.Ingest(nRow, numeric, factor, cfg.AutoCompressThreshold)
	if err != nil {
		return nil, nil, nil, err
	}
	return train.Fit(f, response, cfg, rng)
}

// PredictRegression returns the forest's mean-of-trees regression
// prediction for each row, per spec §4.8. inBag/oob select an
// out-of-bag prediction (inBag may be nil when oob is false).
func PredictRegression(fst *forest.Forest, rows []forest.Row, inBag func(tree, row int) bool, oob bool) []float64 {
	return fst.PredictRegression(rows, inBag, oob)
}

// PredictClassification returns the forest's argmax-of-tallies category
// prediction and per-row category probabilities for each row, per spec
// §4.8.
func PredictClassification(fst *forest.Forest, rows []forest.Row, inBag func(tree, row int) bool, oob bool, jitter forest.Jitter) (categories []int, probs [][]float64) {
	return fst.PredictClassification(rows, inBag, oob, jitter)
}

// PredictQuantile returns the q-th weighted quantile of each row's
// per-tree leaf scores, per spec §4.8.
func PredictQuantile(fst *forest.Forest, rows []forest.Row, leafExtent func(tree, leafID int) int, q float64) []float64 {
	return fst.PredictQuantile(rows, leafExtent, q)
}

// ForestWeight returns the Meinshausen forest-weight matrix (or its
// tensor-backed form for a large training population) relating each
// test row to every training observation, per spec §4.9.
func ForestWeight(fst *forest.Forest, rows []forest.Row, leaves *leaf.LeafSet, nObs int) (dense *mat.Dense, sparse *tensor.Dense, err error) {
	return fst.ForestWeightAuto(rows, leaves, nObs)
}

// SaveModel writes m as indented JSON, per EBooster.Save's
// json.MarshalIndent persistence.
func SaveModel(path string, m *Model) error {
	const op = "arborist.SaveModel"
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return forestutil.New(forestutil.BadInput, op, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return forestutil.New(forestutil.BadInput, op, err)
	}
	return nil
}

// LoadModel reads a model previously written by SaveModel, per
// EBooster.LoadModel's json.Decoder counterpart.
func LoadModel(path string) (*Model, error) {
	const op = "arborist.LoadModel"
	f, err := os.Open(path)
	if err != nil {
		return nil, forestutil.New(forestutil.BadInput, op, err)
	}
	defer f.Close()

	var m Model
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, forestutil.New(forestutil.BadInput, op, err)
	}
	return &m, nil
}
