// Package pdfconfig owns the pdfcpu configuration every reader in this module
// parses with.
package pdfconfig

import (
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	once sync.Once
	base *model.Configuration
)

// Relaxed returns a private copy of a relaxed-validation configuration. The
// base is built once with pdfcpu's config directory disabled, so nothing is
// written under the user's home and no pdfcpu global changes after the first
// call.
func Relaxed() *model.Configuration {
	once.Do(func() {
		api.DisableConfigDir()
		base = model.NewDefaultConfiguration()
		base.ValidationMode = model.ValidationRelaxed
	})
	c := *base
	return &c
}
