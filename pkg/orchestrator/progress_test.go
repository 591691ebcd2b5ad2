package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hl2dm-community/mapsync/pkg/model"
)

func TestProgressFanIn_DeliversInOrder(t *testing.T) {
	var got []int64
	done := make(chan struct{})
	fan := newProgressFanIn(func(p model.TransferProgress) {
		got = append(got, p.BytesDone)
		if p.BytesDone == 3 {
			close(done)
		}
	})

	for i := int64(1); i <= 3; i++ {
		fan.emit(model.TransferProgress{Name: "dm_x.bsp.bz2", BytesDone: i})
	}
	<-done
	fan.close()

	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestProgressFanIn_NeverBlocksWorkers(t *testing.T) {
	release := make(chan struct{})
	fan := newProgressFanIn(func(model.TransferProgress) {
		<-release
	})

	// With the consumer wedged, a worker can emit far more events than the
	// buffer holds without stalling.
	emitted := make(chan struct{})
	go func() {
		for i := 0; i < progressBufferSize*4; i++ {
			fan.emit(model.TransferProgress{BytesDone: int64(i)})
		}
		close(emitted)
	}()

	select {
	case <-emitted:
	case <-time.After(5 * time.Second):
		t.Fatal("emit blocked on a stalled consumer")
	}

	close(release)
	fan.close()
}

func TestProgressFanIn_NilSinkIsNoOp(t *testing.T) {
	fan := newProgressFanIn(nil)
	require.Nil(t, fan)
	fan.emit(model.TransferProgress{BytesDone: 1})
	fan.close()
}
