package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestWithCovN(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{0.01, 0, 0, 0.01})

	samples, err := WithCovN(cov, 500)
	assert.NoError(err)
	rows, cols := samples.Dims()
	assert.Equal(2, rows)
	assert.Equal(500, cols)

	_, err = WithCovN(cov, 0)
	assert.Error(err)
}
