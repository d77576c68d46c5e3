package state

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
	statusmocks "github.com/rdwwatch/rdw-vehicle-watch/internal/status/mocks"
)

var testPlate = plate.MustParse("G727FN")

func TestStateService_InMemory(t *testing.T) {
	t.Parallel()

	initial := status.Empty(testPlate)
	svc := NewStateService(initial, nil)
	assert.Same(t, initial, svc.Snapshot())

	next := &status.Snapshot{Plate: testPlate, ConsecutiveFailures: 1, LastCycleFailed: true}
	svc.Commit(context.Background(), next)
	assert.Same(t, next, svc.Snapshot())

	svc.Commit(context.Background(), nil)
	assert.Same(t, next, svc.Snapshot())
}

func TestStateService_Persists(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	persistence := statusmocks.NewMockStatusPersistence(ctrl)

	first := &status.Snapshot{Plate: testPlate}
	second := &status.Snapshot{Plate: testPlate, ConsecutiveFailures: 2}

	gomock.InOrder(
		persistence.EXPECT().SaveStatus(gomock.Any(), first).Return(nil),
		persistence.EXPECT().SaveStatus(gomock.Any(), second).Return(errors.New("disk full")),
	)

	svc := NewStateService(status.Empty(testPlate), persistence)
	svc.Commit(context.Background(), first)
	svc.Commit(context.Background(), second)

	// a failed write keeps the published snapshot
	assert.Same(t, second, svc.Snapshot())
}

func TestStateService_ConcurrentReads(t *testing.T) {
	t.Parallel()

	svc := NewStateService(status.Empty(testPlate), nil)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				svc.Commit(context.Background(), &status.Snapshot{Plate: testPlate, ConsecutiveFailures: n})
				return
			}
			assert.NotNil(t, svc.Snapshot())
		}(i)
	}
	wg.Wait()
	assert.Equal(t, testPlate, svc.Snapshot().Plate)
}
