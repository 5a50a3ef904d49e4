package orchestrator

import (
	"fmt"

	"github.com/goliatone/go-pageview/pkg/scope"
)

// GlobalParams is the source of the global-params scope layer: either a
// ParamsMap or a ParamsFile.
type GlobalParams interface {
	globalParams()
}

// ParamsMap supplies global params directly.
type ParamsMap map[string]any

// ParamsFile names a file holding global params. Loading params from files
// is not supported; renders fail with ErrNotImplemented while it is set.
type ParamsFile string

func (ParamsMap) globalParams()  {}
func (ParamsFile) globalParams() {}

// SetGlobalParams replaces the global-params layer and returns the
// orchestrator for chaining. The new layer is stored as a copy, so renders
// running concurrently keep the snapshot they started with. Passing nil clears
// the layer.
func (o *Orchestrator) SetGlobalParams(params GlobalParams) *Orchestrator {
	var (
		layer scope.Scope
		err   error
	)

	switch p := params.(type) {
	case nil:
	case ParamsMap:
		layer = scope.Scope(p).Clone()
	case ParamsFile:
		err = fmt.Errorf("%w: global params file %q", ErrNotImplemented, string(p))
	}

	o.mu.Lock()
	o.globalParams = layer
	o.paramsErr = err
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn("global params source unsupported", "error", err)
	}
	return o
}

// GlobalParams returns a copy of the current global-params layer.
func (o *Orchestrator) GlobalParams() map[string]any {
	layer, _ := o.globalLayer()
	return layer.Clone()
}

func (o *Orchestrator) globalLayer() (scope.Scope, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.globalParams, o.paramsErr
}
