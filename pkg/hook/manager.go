package hook

import (
	"sync"

	"github.com/hl2dm-community/mapsync/pkg/errors"
)

// DefaultManager is the default implementation of Manager.
type DefaultManager struct {
	executor *TengoExecutor
	mutex    sync.RWMutex
}

// NewManager creates a new hook manager.
func NewManager() *DefaultManager {
	return &DefaultManager{
		executor: NewTengoExecutor(),
	}
}

// Execute runs the specified hook phase with the given context.
func (m *DefaultManager) Execute(phase Phase, ctx Context) error {
	if !m.HasHook(phase) {
		return nil // No hook registered for this phase
	}

	// Copy the context to prevent modifications
	ctxCopy := ctx
	if ctxCopy.Vars == nil {
		ctxCopy.Vars = make(map[string]interface{})
	}

	return m.executor.Execute(phase, ctxCopy)
}

// AddHook adds a new hook.
func (m *DefaultManager) AddHook(hook Hook) error {
	if hook.Phase == "" {
		return errors.ErrHookPhaseEmpty
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executor.AddScript(hook.Phase, hook.Content)
	return nil
}

// RemoveHook removes a hook of the specified phase.
func (m *DefaultManager) RemoveHook(phase Phase) error {
	if phase == "" {
		return errors.ErrHookPhaseEmpty
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executor.RemoveScript(phase)
	return nil
}

// HasHook checks if a hook of the specified phase exists.
func (m *DefaultManager) HasHook(phase Phase) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.executor.HasScript(phase)
}
