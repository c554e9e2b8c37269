package classifier

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/abelzeko/water-quality-bot/internal/entities"
)

// Options controls forest training
type Options struct {
	Trees       int   `json:"trees"`
	Seed        int64 `json:"seed"`
	MaxDepth    int   `json:"max_depth"`    // 0 grows until leaves are pure
	MinLeaf     int   `json:"min_leaf"`     // minimum rows per leaf
	MaxFeatures int   `json:"max_features"` // 0 uses sqrt(features)
}

// DefaultOptions mirrors the stock ensemble settings: 200 trees, seed 42
func DefaultOptions() Options {
	return Options{
		Trees:   200,
		Seed:    42,
		MinLeaf: 1,
	}
}

type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Class     int     `json:"c"` // -1 for internal nodes
}

// Tree is one CART tree stored as a flat node list rooted at index 0
type Tree struct {
	Nodes []node `json:"nodes"`
}

func (t Tree) predict(x []float64) int {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Class >= 0 {
			return n.Class
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is a fitted ensemble of decision trees
type Forest struct {
	Features []string `json:"features"`
	Classes  []string `json:"classes"`
	Trees    []Tree   `json:"trees"`
	Options  Options  `json:"options"`
	Accuracy float64  `json:"holdout_accuracy"`
}

// Fit grows a bagged random forest on the table
func Fit(t TrainingTable, opts Options) (*Forest, error) {
	if t.Len() == 0 {
		return nil, fmt.Errorf("cannot fit on an empty table")
	}
	if len(t.Features) == 0 {
		return nil, fmt.Errorf("cannot fit without features")
	}
	if opts.Trees <= 0 {
		opts.Trees = DefaultOptions().Trees
	}
	if opts.MinLeaf <= 0 {
		opts.MinLeaf = 1
	}
	mtry := opts.MaxFeatures
	if mtry <= 0 || mtry > len(t.Features) {
		mtry = int(math.Max(1, math.Floor(math.Sqrt(float64(len(t.Features))))))
	}

	classes, y := encodeLabels(t.Labels)
	rng := rand.New(rand.NewSource(opts.Seed))
	f := &Forest{
		Features: append([]string(nil), t.Features...),
		Classes:  classes,
		Options:  opts,
	}

	n := t.Len()
	for k := 0; k < opts.Trees; k++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		b := &builder{
			x:       t.Rows,
			y:       y,
			classes: len(classes),
			mtry:    mtry,
			opts:    opts,
			rng:     rng,
		}
		b.build(sample, 0)
		f.Trees = append(f.Trees, Tree{Nodes: b.nodes})
	}
	return f, nil
}

func encodeLabels(labels []string) ([]string, []int) {
	set := make(map[string]bool)
	for _, l := range labels {
		set[l] = true
	}
	classes := make([]string, 0, len(set))
	for l := range set {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = index[l]
	}
	return classes, y
}

type builder struct {
	x       [][]float64
	y       []int
	classes int
	mtry    int
	opts    Options
	rng     *rand.Rand
	nodes   []node
}

func (b *builder) counts(idx []int) []int {
	c := make([]int, b.classes)
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

// majority picks the most frequent class, lowest index on ties
func majority(counts []int) int {
	best := 0
	for c, n := range counts {
		if n > counts[best] {
			best = c
		}
	}
	return best
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		sum += p * p
	}
	return 1 - sum
}

func (b *builder) leaf(counts []int) int {
	b.nodes = append(b.nodes, node{Class: majority(counts)})
	return len(b.nodes) - 1
}

func (b *builder) build(idx []int, depth int) int {
	counts := b.counts(idx)
	impurity := gini(counts, len(idx))
	if impurity == 0 || len(idx) < 2*b.opts.MinLeaf ||
		(b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth) {
		return b.leaf(counts)
	}

	feature, threshold, ok := b.bestSplit(idx, impurity)
	if !ok {
		return b.leaf(counts)
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	self := len(b.nodes)
	b.nodes = append(b.nodes, node{Feature: feature, Threshold: threshold, Class: -1})
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self].Left = l
	b.nodes[self].Right = r
	return self
}

func (b *builder) bestSplit(idx []int, parent float64) (int, float64, bool) {
	nFeatures := len(b.x[0])
	candidates := b.rng.Perm(nFeatures)[:b.mtry]

	bestGain := 0.0
	bestFeature, bestThreshold := -1, 0.0
	total := len(idx)

	sorted := make([]int, total)
	for _, f := range candidates {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.x[sorted[a]][f] < b.x[sorted[c]][f]
		})

		left := make([]int, b.classes)
		right := b.counts(sorted)
		for k := 0; k < total-1; k++ {
			cls := b.y[sorted[k]]
			left[cls]++
			right[cls]--

			nl := k + 1
			nr := total - nl
			if nl < b.opts.MinLeaf || nr < b.opts.MinLeaf {
				continue
			}
			v, next := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if v == next {
				continue
			}

			weighted := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(total)
			if gain := parent - weighted; gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestThreshold = (v + next) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// Predict returns the majority vote of the trees, ties going to the
// alphabetically first class
func (f *Forest) Predict(x []float64) (string, error) {
	if len(x) != len(f.Features) {
		return "", fmt.Errorf("expected %d features, got %d", len(f.Features), len(x))
	}
	if len(f.Trees) == 0 {
		return "", fmt.Errorf("forest has no trees")
	}
	votes := make([]int, len(f.Classes))
	for _, t := range f.Trees {
		votes[t.predict(x)]++
	}
	return f.Classes[majority(votes)], nil
}

// PredictReading maps a reading onto the trained feature order and predicts
func (f *Forest) PredictReading(r entities.Reading) (string, error) {
	x := make([]float64, len(f.Features))
	for i, name := range f.Features {
		p, ok := entities.ParseParameter(name)
		if !ok {
			return "", fmt.Errorf("model feature %q is not a known reading field", name)
		}
		v, ok := r.Value(p)
		if !ok {
			return "", fmt.Errorf("reading has no value for model feature %q", name)
		}
		x[i] = v
	}
	return f.Predict(x)
}

// Score returns the fraction of rows predicted correctly
func (f *Forest) Score(t TrainingTable) float64 {
	if t.Len() == 0 {
		return 0
	}
	correct := 0
	for i, row := range t.Rows {
		if got, err := f.Predict(row); err == nil && got == t.Labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(t.Len())
}

// Train splits off a 20% holdout, fits on the rest and records the holdout accuracy
func Train(t TrainingTable, opts Options) (*Forest, error) {
	train, test := Split(t, 0.2, opts.Seed)
	f, err := Fit(train, opts)
	if err != nil {
		return nil, err
	}
	f.Accuracy = f.Score(test)
	return f, nil
}
