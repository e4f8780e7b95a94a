package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestBase(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 1.0})

	b, err := NewBase(state)
	assert.NoError(err)
	assert.NotNil(b)

	for i := 0; i < state.Len(); i++ {
		assert.Equal(state.AtVec(i), b.Val().AtVec(i))
	}

	assert.Equal(0, b.Cov().SymmetricDim())

	_, err = NewBase(nil)
	assert.Error(err)
}

func TestWithCov(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, []float64{1.0, 0.5, 0.5, 2.0})

	b, err := NewBaseWithCov(state, cov)
	assert.NoError(err)
	assert.NotNil(b)

	for i := 0; i < state.Len(); i++ {
		assert.Equal(state.AtVec(i), b.Val().AtVec(i))
	}

	rows, cols := cov.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.Equal(cov.At(r, c), b.Cov().At(r, c))
		}
	}

	_, err = NewBaseWithCov(state, nil)
	assert.Error(err)
}
