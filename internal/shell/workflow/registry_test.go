package workflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsodeh/sabi/internal/core/domain"
)

func newTestWorkflow(t *testing.T) *domain.DeploymentWorkflow {
	t.Helper()
	wf, err := domain.NewWorkflow(testProject(), "netlify")
	require.NoError(t, err)
	return wf
}

func TestMemoryRegistry_PutAndSnapshot(t *testing.T) {
	reg := NewMemoryRegistry()
	wf := newTestWorkflow(t)

	require.NoError(t, reg.Put(wf))

	snap, err := reg.Snapshot(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, snap.ID)

	// The snapshot is detached from the registry copy.
	snap.Status = domain.StatusFailed
	snap.Steps[0].AppendLog("mutated")

	fresh, err := reg.Snapshot(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, fresh.Status)
	assert.Empty(t, fresh.Steps[0].Logs)
}

func TestMemoryRegistry_PutDuplicate(t *testing.T) {
	reg := NewMemoryRegistry()
	wf := newTestWorkflow(t)

	require.NoError(t, reg.Put(wf))
	assert.Error(t, reg.Put(wf))
}

func TestMemoryRegistry_UnknownID(t *testing.T) {
	reg := NewMemoryRegistry()

	_, err := reg.Snapshot("wf_missing")
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)

	err = reg.Update("wf_missing", func(wf *domain.DeploymentWorkflow) error { return nil })
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)

	assert.ErrorIs(t, reg.Delete("wf_missing"), domain.ErrWorkflowNotFound)
}

func TestMemoryRegistry_Update(t *testing.T) {
	reg := NewMemoryRegistry()
	wf := newTestWorkflow(t)
	require.NoError(t, reg.Put(wf))

	err := reg.Update(wf.ID, func(wf *domain.DeploymentWorkflow) error {
		return wf.Transition(domain.StatusInProgress)
	})
	require.NoError(t, err)

	snap, err := reg.Snapshot(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, snap.Status)
}

func TestMemoryRegistry_Delete(t *testing.T) {
	reg := NewMemoryRegistry()
	wf := newTestWorkflow(t)
	require.NoError(t, reg.Put(wf))

	require.NoError(t, reg.Delete(wf.ID))
	_, err := reg.Snapshot(wf.ID)
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestMemoryRegistry_ListNewestFirst(t *testing.T) {
	reg := NewMemoryRegistry()
	for i := 0; i < 3; i++ {
		require.NoError(t, reg.Put(newTestWorkflow(t)))
	}

	list := reg.List()
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i-1].CreatedAt.Before(list[i].CreatedAt))
	}
}

func TestMemoryRegistry_ConcurrentUpdates(t *testing.T) {
	reg := NewMemoryRegistry()
	wf := newTestWorkflow(t)
	require.NoError(t, reg.Put(wf))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Update(wf.ID, func(wf *domain.DeploymentWorkflow) error {
				wf.AppendLog("line")
				return nil
			})
		}()
	}
	wg.Wait()

	snap, err := reg.Snapshot(wf.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Logs, 50)
}
