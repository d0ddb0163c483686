// Command arborist trains and evaluates decision forests, grounded on
// extra_boost_main/main.go's flag/mode-dispatch-table/JSON-config
// shape (train/predict/graph modes, each decoding its own config
// struct from a JSON file named by -config).
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/sbinet/npyio"

	"github.com/hawkberry/Arborist"
	"github.com/hawkberry/Arborist/internal/forest"
	"github.com/hawkberry/Arborist/internal/frame"
	"github.com/hawkberry/Arborist/internal/ingest"
)

func newRNG() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }

func decodeConfig(srcConfig string, out interface{}) error {
	file, err := os.Open(srcConfig)
	if err != nil {
		return err
	}
	defer file.Close()
	return json.NewDecoder(file).Decode(out)
}

// TrainConfig is the on-disk shape of a training run: predictor
// sources read by path, the response, and the forest hyperparameters
// arborist.TrainConfig exposes directly.
type TrainConfig struct {
	NumericFiles []string `json:"numeric_files"`
	FactorFiles  []string `json:"factor_files"`
	Cardinality  []int    `json:"factor_cardinality"`
	ResponseFile string   `json:"response_file"`
	NCtg         int      `json:"n_ctg"`
	FilenameModel string  `json:"filename_model"`

	NTree                 int       `json:"n_tree"`
	NSamp                 int       `json:"n_samp"`
	WithReplacement       bool      `json:"with_replacement"`
	PredFixed             int       `json:"pred_fixed"`
	PredProb              float64   `json:"pred_prob"`
	MinNode               int       `json:"min_node"`
	TotLevels             int       `json:"tot_levels"`
	MinRatio              float64   `json:"min_ratio"`
	LeafMax               int       `json:"leaf_max"`
	SplitQuant            []float64 `json:"split_quant"`
	RegMono               []float64 `json:"reg_mono"`
	AutoCompressThreshold float64   `json:"auto_compress_threshold"`
	NThread               int       `json:"n_thread"`
	TreeBlock             int       `json:"tree_block"`
	ThinLeaves            bool      `json:"thin_leaves"`
}

func train(srcConfig string) {
	var cfg TrainConfig
	if err := decodeConfig(srcConfig, &cfg); err != nil {
		log.Fatal(err)
	}

	var numeric []frame.NumericSource
	for _, path := range cfg.NumericFiles {
		col, err := ingest.ReadNumericColumn(path)
		if err != nil {
			log.Fatal(err)
		}
		numeric = append(numeric, frame.NumericSource{Dense: col})
	}
	var factor []frame.FactorSource
	for i, path := range cfg.FactorFiles {
		codes, err := ingest.ReadFactorColumn(path, cfg.Cardinality[i])
		if err != nil {
			log.Fatal(err)
		}
		factor = append(factor, frame.FactorSource{Codes: codes, Cardinality: cfg.Cardinality[i]})
	}

	respCol, err := ingest.ReadNumericColumn(cfg.ResponseFile)
	if err != nil {
		log.Fatal(err)
	}
	resp := arborist.Response{NCtg: cfg.NCtg}
	if cfg.NCtg > 0 {
		cats := make([]int, len(respCol))
		for i, v := range respCol {
			cats[i] = int(v)
		}
		resp.Category = cats
	} else {
		resp.Y = respCol
	}

	tcfg := arborist.TrainConfig{
		NTree: cfg.NTree, NSamp: cfg.NSamp, WithReplacement: cfg.WithReplacement,
		PredFixed: cfg.PredFixed, PredProb: cfg.PredProb, MinNode: cfg.MinNode,
		TotLevels: cfg.TotLevels, MinRatio: cfg.MinRatio, LeafMax: cfg.LeafMax,
		SplitQuant: cfg.SplitQuant, RegMono: cfg.RegMono,
		AutoCompressThreshold: cfg.AutoCompressThreshold, NThread: cfg.NThread,
		TreeBlock: cfg.TreeBlock, ThinLeaves: cfg.ThinLeaves,
	}

	log.Println("training forest")
	fst, leaves, gain, err := arborist.Fit(tcfg, len(respCol), numeric, factor, resp, newRNG())
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("trained %d trees, gain by predictor: %v", fst.NTree(), gain)

	if err := arborist.SaveModel(cfg.FilenameModel, &arborist.Model{Forest: fst, Leaves: leaves}); err != nil {
		log.Fatal(err)
	}
}

// PredictConfig names the model and feature files a predict run reads.
type PredictConfig struct {
	ModelFileName      string   `json:"filename_model"`
	NumericFiles       []string `json:"numeric_files"`
	FactorFiles        []string `json:"factor_files"`
	Cardinality        []int    `json:"factor_cardinality"`
	PredictionFileName string   `json:"filename_prediction"`
}

func predict(srcConfig string) {
	var cfg PredictConfig
	if err := decodeConfig(srcConfig, &cfg); err != nil {
		log.Fatal(err)
	}

	m, err := arborist.LoadModel(cfg.ModelFileName)
	if err != nil {
		log.Fatal(err)
	}

	var numeric [][]float64
	for _, path := range cfg.NumericFiles {
		col, err := ingest.ReadNumericColumn(path)
		if err != nil {
			log.Fatal(err)
		}
		numeric = append(numeric, col)
	}
	var factor [][]int
	for i, path := range cfg.FactorFiles {
		codes, err := ingest.ReadFactorColumn(path, cfg.Cardinality[i])
		if err != nil {
			log.Fatal(err)
		}
		factor = append(factor, codes)
	}

	nRow := 0
	if len(numeric) > 0 {
		nRow = len(numeric[0])
	} else if len(factor) > 0 {
		nRow = len(factor[0])
	}
	rows := make([]forest.Row, nRow)
	for r := range rows {
		row := forest.Row{Numeric: make([]float64, len(numeric)), Factor: make([]int, len(factor))}
		for p, col := range numeric {
			row.Numeric[p] = col[r]
		}
		for p, col := range factor {
			row.Factor[p] = col[r]
		}
		rows[r] = row
	}

	var prediction []float64
	if m.Forest.NCtg > 0 {
		categories, _ := arborist.PredictClassification(m.Forest, rows, nil, false, noJitter)
		prediction = make([]float64, len(categories))
		for i, c := range categories {
			prediction[i] = float64(c)
		}
	} else {
		prediction = arborist.PredictRegression(m.Forest, rows, nil, false)
	}

	dst, err := os.Create(cfg.PredictionFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer dst.Close()
	if err := npyio.Write(dst, prediction); err != nil {
		log.Fatal(err)
	}
}

func noJitter(tree, category int) float64 { return 0 }

// GraphConfig names the model and single tree a graph run renders.
type GraphConfig struct {
	ModelFileName string `json:"filename_model"`
	TreeIndex     int    `json:"tree_index"`
	FigureType    string `json:"figure_type"`
	OutputFile    string `json:"filename_output"`
}

func graph(srcConfig string) {
	var cfg GraphConfig
	if err := decodeConfig(srcConfig, &cfg); err != nil {
		log.Fatal(err)
	}
	m, err := arborist.LoadModel(cfg.ModelFileName)
	if err != nil {
		log.Fatal(err)
	}
	dst, err := os.Create(cfg.OutputFile)
	if err != nil {
		log.Fatal(err)
	}
	defer dst.Close()
	if err := m.Forest.RenderTree(cfg.TreeIndex, dst, cfg.FigureType); err != nil {
		log.Fatal(err)
	}
}

func main() {
	runMode := flag.String("mode", "train", "you can select either 'train', 'predict' or 'graph' modes")
	config := flag.String("config", "arborist_config.json", "a config file for the run of the program")
	flag.Parse()

	mode, ok := map[string]func(string){
		"train":   train,
		"predict": predict,
		"graph":   graph,
	}[*runMode]
	if !ok {
		log.Fatalf("unknown mode %q", *runMode)
	}
	mode(*config)
}
