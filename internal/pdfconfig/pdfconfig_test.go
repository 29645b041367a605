package pdfconfig

import (
	"sync"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
)

func TestRelaxedReturnsCopies(t *testing.T) {
	a := Relaxed()
	b := Relaxed()
	assert.Equal(t, model.ValidationRelaxed, a.ValidationMode)
	assert.NotSame(t, a, b)

	a.ValidationMode = model.ValidationStrict
	assert.Equal(t, model.ValidationRelaxed, Relaxed().ValidationMode)
	assert.Equal(t, "disable", model.ConfigPath)
}

func TestRelaxedConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, model.ValidationRelaxed, Relaxed().ValidationMode)
		}()
	}
	wg.Wait()
}
