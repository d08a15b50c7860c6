package plane

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// event places a pointer at the given viewBox coordinates on a full-size
// canvas with no offset.
func event(x, y float64) PointerEvent {
	return PointerEvent{LayerX: x, LayerY: y, CanvasWidth: DefaultSize}
}

func TestConfigFromDataAttrs(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := ConfigFromDataAttrs(map[string]string{})
		assert.Equal(t, ModeBrowse, cfg.Mode)
		assert.Equal(t, DefaultSize, cfg.Size)
		assert.Nil(t, cfg.TopicID)
	})

	t.Run("provisional point implies edit-position", func(t *testing.T) {
		cfg := ConfigFromDataAttrs(map[string]string{"data-x": "10", "data-y": "-20"})
		assert.Equal(t, ModeEditPosition, cfg.Mode)
		require.NotNil(t, cfg.Provisional)
		assert.Equal(t, Point{X: 10, Y: -20}, *cfg.Provisional)
	})

	t.Run("readonly wins over everything", func(t *testing.T) {
		cfg := ConfigFromDataAttrs(map[string]string{
			"data-x":              "10",
			"data-y":              "10",
			"data-graph-new-task": "true",
			"data-graph-readonly": "true",
		})
		assert.Equal(t, ModeReadOnly, cfg.Mode)
	})

	t.Run("topic and highlight", func(t *testing.T) {
		cfg := ConfigFromDataAttrs(map[string]string{
			"data-topic-id":       "7",
			"data-highlight-task": "42",
			"data-trash-only":     "true",
		})
		require.NotNil(t, cfg.TopicID)
		assert.Equal(t, int64(7), *cfg.TopicID)
		assert.Equal(t, int64(42), cfg.Highlight)
		assert.True(t, cfg.TrashOnly)
	})
}

func TestPlotAndApplyTasks(t *testing.T) {
	p := New(Config{})
	p.ApplyTasks([]TaskPoint{
		{ID: 1, X: 0, Y: 0},
		{ID: 2, X: 50, Y: -50},
	})
	require.Len(t, p.Markers(), 2)
	assert.Equal(t, Point{X: 250, Y: 250}, p.Markers()[0].Display)
	assert.Equal(t, Point{X: 375, Y: 375}, p.Markers()[1].Display)
}

func TestApplyTasksPlotsOnReadOnlyPlane(t *testing.T) {
	p := New(Config{Mode: ModeReadOnly, TrashOnly: true})

	// trash views show historical positions, including out-of-bound ones
	p.ApplyTasks([]TaskPoint{{ID: 1, X: 120, Y: -150}})
	require.Len(t, p.Markers(), 1)
	assert.Equal(t, Point{X: 550, Y: 625}, p.Markers()[0].Display)

	// the markers render but never react
	p.MarkerEnter(1)
	res := p.Click(event(550, 625))
	assert.Empty(t, res.NavigateURL)
	assert.Nil(t, res.Provisional)
}

func TestLateFetchOnNowReadOnlyPlaneStillPlots(t *testing.T) {
	p := New(Config{})
	p.SetMode(ModeReadOnly)
	// a fetch started before the mode change completes late
	p.ApplyTasks([]TaskPoint{{ID: 1}})
	require.Len(t, p.Markers(), 1)
	// plotted without click wiring
	assert.False(t, p.markerClickable[p.Markers()[0].ElementID])
}

func TestHighlight(t *testing.T) {
	p := New(Config{})
	p.ApplyTasks([]TaskPoint{{ID: 1}, {ID: 2}, {ID: 3}})

	p.Highlight(2)
	for _, m := range p.Markers() {
		if m.Task.ID == 2 {
			assert.Equal(t, 1.5, m.Scale)
			assert.Equal(t, 1.0, m.Opacity)
		} else {
			assert.Equal(t, 1.0, m.Scale)
			assert.Equal(t, 0.4, m.Opacity)
		}
	}

	// idempotent
	p.Highlight(2)
	assert.Equal(t, 1.5, p.Markers()[1].Scale)

	// last write wins and previous target re-normalizes
	p.Highlight(3)
	assert.Equal(t, 1.0, p.Markers()[1].Scale)
	assert.Equal(t, 0.4, p.Markers()[1].Opacity)
	assert.Equal(t, 1.5, p.Markers()[2].Scale)

	// reversible
	p.Highlight(0)
	for _, m := range p.Markers() {
		assert.Equal(t, 1.0, m.Scale)
		assert.Equal(t, 1.0, m.Opacity)
	}
}

func TestHighlightAppliesToLatePlots(t *testing.T) {
	p := New(Config{Highlight: 2})
	p.ApplyTasks([]TaskPoint{{ID: 1}, {ID: 2}})
	assert.Equal(t, 0.4, p.Markers()[0].Opacity)
	assert.Equal(t, 1.5, p.Markers()[1].Scale)
}

func TestPointerToDomainUsesCanvasRatio(t *testing.T) {
	p := New(Config{})
	// canvas rendered at half the viewBox size
	ev := PointerEvent{LayerX: 135, LayerY: 10, OffsetLeft: 10, OffsetTop: 10, CanvasWidth: 250}
	d := p.PointerToDomain(ev)
	assert.Equal(t, 0.0, d.X)
	assert.Equal(t, 100.0, d.Y)
}

func TestClickToCreate(t *testing.T) {
	p := New(Config{Mode: ModeCreate})

	res := p.Click(event(375, 125))
	require.NotNil(t, res.Provisional)
	assert.True(t, res.Provisional.Provisional)
	assert.Equal(t, 50.0, res.Provisional.Task.X)
	assert.Equal(t, 50.0, res.Provisional.Task.Y)
	assert.Empty(t, res.NavigateURL)
	assert.Len(t, p.Markers(), 1)
}

func TestClickToCreateSuppressedWhileHoveringMarker(t *testing.T) {
	p := New(Config{Mode: ModeCreate})
	p.Plot(TaskPoint{ID: 1, X: 0, Y: 0})

	p.MarkerEnter(1)
	res := p.Click(event(250, 250))
	assert.Nil(t, res.Provisional)

	p.MarkerLeave(1)
	res = p.Click(event(250, 250))
	assert.NotNil(t, res.Provisional)
}

func TestConfirmCreate(t *testing.T) {
	topicID := int64(9)
	p := New(Config{Mode: ModeCreate, TopicID: &topicID})
	res := p.Click(event(375, 125))
	require.NotNil(t, res.Provisional)

	assert.Equal(t, "/tasks/create?topic=9&x=50&y=50", p.ConfirmCreate(res.Provisional))
}

func TestConfirmCreateWithoutTopic(t *testing.T) {
	p := New(Config{Mode: ModeCreate})
	res := p.Click(event(300, 300))
	require.NotNil(t, res.Provisional)

	assert.Equal(t, "/tasks/create?x=20&y=-20", p.ConfirmCreate(res.Provisional))
}

func TestDeclineCreateRemovesMarker(t *testing.T) {
	p := New(Config{Mode: ModeCreate})
	res := p.Click(event(300, 300))
	require.NotNil(t, res.Provisional)
	require.Len(t, p.Markers(), 1)

	p.DeclineCreate(res.Provisional)
	assert.Empty(t, p.Markers())
}

func TestBrowseClickNavigatesToTask(t *testing.T) {
	p := New(Config{})
	p.Plot(TaskPoint{ID: 7, X: 0, Y: 0})

	p.MarkerEnter(7)
	res := p.Click(event(252, 248))
	assert.Equal(t, "/tasks/7", res.NavigateURL)

	// a click far from any marker does nothing even while hovering
	res = p.Click(event(10, 10))
	assert.Empty(t, res.NavigateURL)
}

func TestClickIgnoresMarkersWithClickHandlerOff(t *testing.T) {
	p := New(Config{})
	m := p.Plot(TaskPoint{ID: 7, X: 0, Y: 0})

	p.MarkerEnter(7)
	p.markerClickable[m.ElementID] = false
	res := p.Click(event(250, 250))
	assert.Empty(t, res.NavigateURL)

	p.markerClickable[m.ElementID] = true
	res = p.Click(event(250, 250))
	assert.Equal(t, "/tasks/7", res.NavigateURL)
}

func TestReadOnlyIgnoresClicks(t *testing.T) {
	p := New(Config{Mode: ModeReadOnly})
	res := p.Click(event(250, 250))
	assert.Nil(t, res.Provisional)
	assert.Empty(t, res.NavigateURL)
}

func TestDragUpdatesPositionAndReadout(t *testing.T) {
	start := Point{X: 10, Y: 10}
	p := New(Config{Mode: ModeEditPosition, Provisional: &start})

	p.PointerDown(0)
	require.True(t, p.Dragging())
	// the dragged marker's own click handler is forced off for the duration
	assert.False(t, p.markerClickable[p.Markers()[0].ElementID])

	p.PointerMove(event(375, 125))
	m := p.Markers()[0]
	assert.Equal(t, 50.0, m.Task.X)
	assert.Equal(t, 50.0, m.Task.Y)
	assert.Equal(t, Point{X: 375, Y: 125}, m.Display)
	assert.Equal(t, Point{X: 50, Y: 50}, p.Readout)

	p.PointerUp()
	assert.False(t, p.Dragging())
	assert.True(t, p.markerClickable[m.ElementID])
}

func TestDragReleaseSuppressesClick(t *testing.T) {
	start := Point{X: 0, Y: 0}
	p := New(Config{Mode: ModeEditPosition, Provisional: &start})

	p.PointerDown(0)
	p.PointerMove(event(300, 300))
	p.PointerUp()

	// the browser fires a click on release; it must be consumed once
	res := p.Click(event(300, 300))
	assert.Nil(t, res.Provisional)
	assert.Empty(t, res.NavigateURL)

	// the suppression is one-shot, but edit-position ignores clicks anyway
	res = p.Click(event(300, 300))
	assert.Nil(t, res.Provisional)
}

func TestPointerDownIgnoredOutsideEditPosition(t *testing.T) {
	p := New(Config{})
	p.Plot(TaskPoint{ID: 1})
	p.PointerDown(1)
	assert.False(t, p.Dragging())
}

func TestPlanesAreIndependent(t *testing.T) {
	a := New(Config{})
	b := New(Config{})
	assert.NotEqual(t, a.ID(), b.ID())

	a.Plot(TaskPoint{ID: 1})
	a.Highlight(1)
	b.Plot(TaskPoint{ID: 1})

	assert.Equal(t, 1.5, a.Markers()[0].Scale)
	assert.Equal(t, 1.0, b.Markers()[0].Scale)
}

func TestRenderSVG(t *testing.T) {
	p := New(Config{})
	p.Plot(TaskPoint{ID: 1, State: "complete", X: 50, Y: 50})

	var sb strings.Builder
	require.NoError(t, p.RenderSVG(&sb))
	out := sb.String()

	assert.Contains(t, out, `viewBox="0 0 500 500"`)
	assert.Contains(t, out, p.ID())
	assert.Contains(t, out, p.Markers()[0].ElementID)
	assert.Contains(t, out, `translate(375 125)`)
	assert.Contains(t, out, `stroke="green"`)
}
