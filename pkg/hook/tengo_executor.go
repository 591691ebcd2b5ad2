package hook

import (
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/hl2dm-community/mapsync/pkg/errors"
)

// TengoExecutor handles the execution of Tengo scripts.
type TengoExecutor struct {
	scripts map[Phase]string
	mutex   sync.RWMutex
}

// NewTengoExecutor creates a new Tengo script executor.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{
		scripts: make(map[Phase]string),
	}
}

// Execute runs the specified hook phase with the given context.
func (e *TengoExecutor) Execute(phase Phase, ctx Context) error {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	script, exists := e.scripts[phase]
	if !exists {
		return nil // No script for this phase
	}

	scriptInstance := tengo.NewScript([]byte(script))

	modules := stdlib.GetModuleMap("fmt", "os", "text", "times")
	scriptInstance.SetImports(modules)

	_ = scriptInstance.Add("mapName", ctx.MapName)
	_ = scriptInstance.Add("path", ctx.Path)
	_ = scriptInstance.Add("downloadDir", ctx.DownloadDir)
	_ = scriptInstance.Add("outcome", ctx.Outcome)

	for k, v := range ctx.Vars {
		_ = scriptInstance.Add(k, v)
	}

	compiled, err := scriptInstance.Run()
	if err != nil {
		return errors.Wrapf(errors.ErrHookExecution, "%s: %v", phase, err)
	}

	// Scripts signal failure by assigning to err.
	errVar := compiled.Get("err")
	if errVar != nil {
		switch v := errVar.Value().(type) {
		case error:
			return errors.Wrap(errors.ErrHookScript, v.Error())
		case string:
			if v != "" {
				return errors.Wrap(errors.ErrHookScript, v)
			}
		}
	}

	return nil
}

// AddScript adds or updates a script for the specified phase.
func (e *TengoExecutor) AddScript(phase Phase, script string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.scripts[phase] = script
}

// RemoveScript removes the script for the specified phase.
func (e *TengoExecutor) RemoveScript(phase Phase) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.scripts, phase)
}

// HasScript checks if a script exists for the specified phase.
func (e *TengoExecutor) HasScript(phase Phase) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	_, exists := e.scripts[phase]
	return exists
}
