package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusFireStopsAtFirstHandler(t *testing.T) {
	bus := NewEventBus()
	var got []uint32

	first, second := &struct{ a int }{}, &struct{ b int }{}
	assert.True(t, bus.Register(EVENT_CODE_RESIZED, first, func(code SystemEventCode, sender interface{}, data EventContext) bool {
		got = append(got, data.Data.U32[0])
		return true
	}))
	assert.True(t, bus.Register(EVENT_CODE_RESIZED, second, func(code SystemEventCode, sender interface{}, data EventContext) bool {
		got = append(got, 0)
		return false
	}))
	assert.False(t, bus.Register(EVENT_CODE_RESIZED, first, nil))

	ctx := EventContext{}
	ctx.Data.U32[0] = 640
	assert.True(t, bus.Fire(EVENT_CODE_RESIZED, nil, ctx))
	assert.Equal(t, []uint32{640}, got)

	assert.True(t, bus.Unregister(EVENT_CODE_RESIZED, first))
	assert.False(t, bus.Fire(EVENT_CODE_RESIZED, nil, ctx))
	assert.Equal(t, []uint32{640, 0}, got)
}

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 70; i++ {
		m.Update(1.0 / 60.0)
	}
	assert.InDelta(t, 60.0, m.FPS(), 1.0)
	assert.InDelta(t, 16.6, m.FrameTime(), 0.2)
}

func TestParseLogLevelShort(t *testing.T) {
	lvl, ok := ParseLogLevel("WARN")
	assert.True(t, ok)
	assert.Equal(t, LogLevelWarn, lvl)

	_, ok = ParseLogLevel("loud")
	assert.False(t, ok)
}
