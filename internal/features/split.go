package features

import (
	"fmt"
	"math/rand"
	"sort"
)

// Split is a stratified train/test partition of a fused feature matrix.
type Split struct {
	XTrain [][]float64
	YTrain []int
	XTest  [][]float64
	YTest  []int
}

// StratifiedSplit partitions X/y so each class keeps the configured test
// fraction, shuffling within each class with the given seed.
func StratifiedSplit(X [][]float64, y []int, testFraction float64, seed int64) (*Split, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("features: split %d rows with %d labels", len(X), len(y))
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, fmt.Errorf("features: test fraction %.3f outside (0, 1)", testFraction)
	}

	byClass := map[int][]int{}
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}

	rng := rand.New(rand.NewSource(seed))
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	// map iteration order is random; fix it so the split is reproducible
	sort.Ints(classes)

	var trainIdx, testIdx []int
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(float64(len(idx)) * testFraction)
		testIdx = append(testIdx, idx[:nTest]...)
		trainIdx = append(trainIdx, idx[nTest:]...)
	}
	rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	rng.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })

	s := &Split{
		XTrain: make([][]float64, len(trainIdx)),
		YTrain: make([]int, len(trainIdx)),
		XTest:  make([][]float64, len(testIdx)),
		YTest:  make([]int, len(testIdx)),
	}
	for i, j := range trainIdx {
		s.XTrain[i] = X[j]
		s.YTrain[i] = y[j]
	}
	for i, j := range testIdx {
		s.XTest[i] = X[j]
		s.YTest[i] = y[j]
	}
	return s, nil
}
