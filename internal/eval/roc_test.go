package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryROCPerfectSeparation(t *testing.T) {
	c := BinaryROC([]int{1, 1, 0, 0}, []float64{0.9, 0.8, 0.2, 0.1})
	assert.Equal(t, 1.0, c.AUC)
}

func TestBinaryROCKnownArea(t *testing.T) {
	// ranking 1,0,1,0 by score gives AUC 0.75
	c := BinaryROC([]int{1, 0, 1, 0}, []float64{0.9, 0.8, 0.7, 0.6})
	assert.InDelta(t, 0.75, c.AUC, 1e-12)
}

func TestBinaryROCDegenerate(t *testing.T) {
	c := BinaryROC([]int{1, 1}, []float64{0.2, 0.9})
	assert.Equal(t, 0.0, c.AUC)
}

func TestMicroAUCOneHotIsExactlyOne(t *testing.T) {
	y := []int{0, 1, 2, 1, 0}
	proba := make([][]float64, len(y))
	for i, c := range y {
		row := make([]float64, 3)
		row[c] = 1
		proba[i] = row
	}
	c := MicroROC(y, proba, 3)
	assert.Equal(t, 1.0, c.AUC)
}

func TestPerClassROC(t *testing.T) {
	y := []int{0, 0, 1, 1}
	proba := [][]float64{
		{0.9, 0.1},
		{0.8, 0.2},
		{0.3, 0.7},
		{0.2, 0.8},
	}
	curves := PerClassROC(y, proba, 2)
	require.Len(t, curves, 2)
	assert.Equal(t, 1.0, curves[0].AUC)
	assert.Equal(t, 1.0, curves[1].AUC)
}

func TestMacroROCAveragesIdenticalCurves(t *testing.T) {
	diag := Curve{FPR: []float64{0, 1}, TPR: []float64{0, 1}, AUC: 0.5}
	macro := MacroROC([]Curve{diag, diag})
	assert.InDelta(t, 0.5, macro.AUC, 1e-12)

	mid := Curve{FPR: []float64{0, 0.5, 1}, TPR: []float64{0, 0.8, 1}, AUC: 0.65}
	macro = MacroROC([]Curve{diag, mid})
	assert.InDelta(t, (0.5+0.65)/2, macro.AUC, 1e-12)
}

func TestMacroROCBoundedByPerfect(t *testing.T) {
	perfect := BinaryROC([]int{1, 0}, []float64{0.9, 0.1})
	half := BinaryROC([]int{1, 0, 1, 0}, []float64{0.9, 0.8, 0.7, 0.6})
	macro := MacroROC([]Curve{perfect, half})
	assert.Greater(t, macro.AUC, half.AUC)
	assert.Less(t, macro.AUC, perfect.AUC)
}
