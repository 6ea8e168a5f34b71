package facecam

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMailbox_Empty(t *testing.T) {
	m := NewMailbox()

	_, ok := m.Take()
	assert.False(t, ok)

	select {
	case <-m.Ready():
		t.Fatal("empty mailbox should not be ready")
	default:
	}
}

func TestMailbox_LatestWins(t *testing.T) {
	m := NewMailbox()

	m.Publish(RenderState{Faces: 1})
	m.Publish(RenderState{Faces: 2})
	m.Publish(RenderState{Faces: 3})

	<-m.Ready()
	state, ok := m.Take()
	assert.True(t, ok)
	assert.Equal(t, 3, state.Faces)
	assert.Equal(t, uint64(3), state.Seq)
	assert.Equal(t, uint64(2), m.Overwrites())

	_, ok = m.Take()
	assert.False(t, ok)
}

func TestMailbox_ClearedStateIsDelivered(t *testing.T) {
	m := NewMailbox()
	m.Publish(RenderState{})

	state, ok := m.Take()
	assert.True(t, ok)
	assert.Nil(t, state.Texture)
	assert.Empty(t, state.Overlays)
	assert.Equal(t, 0, state.Faces)
}

func TestMailbox_ConcurrentPublish(t *testing.T) {
	m := NewMailbox()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Publish(RenderState{Faces: j})
			}
		}()
	}
	wg.Wait()

	state, ok := m.Take()
	assert.True(t, ok)
	assert.Equal(t, uint64(800), state.Seq)
	assert.Equal(t, uint64(799), m.Overwrites())
}
