package runtime_test

import (
	"testing"

	"github.com/robotpit/pinsmith/internal/runtime"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLEDEditor(t *testing.T, opts ...runtime.Option) *runtime.Editor {
	t.Helper()
	ed := runtime.NewEditor(nil, opts...)
	_, err := ed.ApplyConfig(5, domain.KindLED, "Status", nil)
	require.NoError(t, err)
	return ed
}

func TestAddStep(t *testing.T) {
	ed := newLEDEditor(t)

	idx, err := ed.AddStep(5)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	steps := ed.Steps(5)
	require.Len(t, steps, 1)
	assert.Equal(t, domain.ActionOn, steps[0].Type, "defaults to the kind's first action")
	assert.Nil(t, steps[0].Params)

	_, err = ed.AddStep(4)
	assert.ErrorIs(t, err, domain.ErrPinNotConfigured)

	_, err = ed.ApplyConfig(34, domain.KindSensorLight, "", nil)
	require.NoError(t, err)
	_, err = ed.AddStep(34)
	assert.ErrorIs(t, err, domain.ErrNoActionsForKind)
	assert.Empty(t, ed.Steps(34))
}

func TestSetStepType(t *testing.T) {
	ed := newLEDEditor(t)
	_, err := ed.AddStep(5)
	require.NoError(t, err)

	require.NoError(t, ed.SetStepType(5, 0, domain.ActionBlink))
	require.NoError(t, ed.SetStepParam(5, 0, 0, "250"))

	// A type change drops parameters, even when the new action has the same ones
	require.NoError(t, ed.SetStepType(5, 0, domain.ActionBlink))
	assert.Nil(t, ed.Steps(5)[0].Params)

	assert.ErrorIs(t, ed.SetStepType(5, 1, domain.ActionOff), domain.ErrIndexOutOfRange)
	assert.ErrorIs(t, ed.SetStepType(5, -1, domain.ActionOff), domain.ErrIndexOutOfRange)
	assert.ErrorIs(t, ed.SetStepType(5, 0, domain.ActionRamp), domain.ErrUnknownAction)
	assert.ErrorIs(t, ed.SetStepType(4, 0, domain.ActionOff), domain.ErrPinNotConfigured)
	assert.Equal(t, domain.ActionBlink, ed.Steps(5)[0].Type)
}

func TestSetStepParam(t *testing.T) {
	ed := runtime.NewEditor(nil)
	_, err := ed.ApplyConfig(25, domain.KindMotorDC, "Wheel", nil)
	require.NoError(t, err)
	_, err = ed.AddStep(25)
	require.NoError(t, err)
	require.NoError(t, ed.SetStepType(25, 0, domain.ActionRamp))

	require.NoError(t, ed.SetStepParam(25, 0, 0, "0"))
	require.NoError(t, ed.SetStepParam(25, 0, 2, " 2000 "))
	require.NoError(t, ed.SetStepParamByName(25, 0, "to", "100"))

	assert.Equal(t, map[string]string{"from": "0", "to": "100", "duration": "2000"}, ed.Steps(25)[0].Params)

	t.Run("IndexErrors", func(t *testing.T) {
		assert.ErrorIs(t, ed.SetStepParam(25, 0, 3, "1"), domain.ErrIndexOutOfRange)
		assert.ErrorIs(t, ed.SetStepParam(25, 0, -1, "1"), domain.ErrIndexOutOfRange)
		assert.ErrorIs(t, ed.SetStepParam(25, 4, 0, "1"), domain.ErrIndexOutOfRange)
		assert.ErrorIs(t, ed.SetStepParamByName(25, 0, "angle", "1"), domain.ErrInvalidParam)
	})

	t.Run("LenientByDefault", func(t *testing.T) {
		require.NoError(t, ed.SetStepParam(25, 0, 1, "250"))
		assert.Equal(t, "250", ed.Steps(25)[0].Params["to"])
	})
}

func TestSetStepParam_Strict(t *testing.T) {
	ed := newLEDEditor(t, runtime.WithStrictParams(true))
	_, err := ed.AddStep(5)
	require.NoError(t, err)
	require.NoError(t, ed.SetStepType(5, 0, domain.ActionBlink))

	assert.ErrorIs(t, ed.SetStepParam(5, 0, 0, "10"), domain.ErrInvalidParam)
	assert.ErrorIs(t, ed.SetStepParam(5, 0, 0, "fast"), domain.ErrInvalidParam)
	assert.Nil(t, ed.Steps(5)[0].Params)

	require.NoError(t, ed.SetStepParam(5, 0, 0, "250"))
	assert.Equal(t, "250", ed.Steps(5)[0].Params["interval"])
}

func TestMoveStep(t *testing.T) {
	ed := newLEDEditor(t)
	for _, a := range []domain.ActionID{domain.ActionOn, domain.ActionBlink, domain.ActionOff} {
		idx, err := ed.AddStep(5)
		require.NoError(t, err)
		require.NoError(t, ed.SetStepType(5, idx, a))
	}
	types := func() []domain.ActionID {
		var out []domain.ActionID
		for _, s := range ed.Steps(5) {
			out = append(out, s.Type)
		}
		return out
	}

	moved, err := ed.MoveStep(5, 2, -1)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []domain.ActionID{domain.ActionOn, domain.ActionOff, domain.ActionBlink}, types())

	for _, tc := range []struct{ index, delta int }{{0, -1}, {2, 1}, {7, -1}, {-1, 1}, {1, 0}} {
		moved, err := ed.MoveStep(5, tc.index, tc.delta)
		assert.NoError(t, err)
		assert.False(t, moved, "index %d delta %d", tc.index, tc.delta)
	}
	assert.Equal(t, []domain.ActionID{domain.ActionOn, domain.ActionOff, domain.ActionBlink}, types())

	_, err = ed.MoveStep(4, 0, 1)
	assert.ErrorIs(t, err, domain.ErrPinNotConfigured)
}

func TestDeleteStep(t *testing.T) {
	ed := newLEDEditor(t)
	for i := 0; i < 3; i++ {
		_, err := ed.AddStep(5)
		require.NoError(t, err)
	}
	require.NoError(t, ed.SetStepType(5, 2, domain.ActionOff))

	before := ed.Steps(5)
	require.NoError(t, ed.DeleteStep(5, 0))
	after := ed.Steps(5)
	require.Len(t, after, 2)
	assert.Equal(t, domain.ActionOff, after[1].Type)
	assert.Len(t, before, 3, "copies handed out earlier are unaffected")

	assert.ErrorIs(t, ed.DeleteStep(5, 2), domain.ErrIndexOutOfRange)
	assert.Len(t, ed.Steps(5), 2)
}
