package plane

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// Mode selects which pointer interactions a plane honours. Modes are
// mutually exclusive per instance.
type Mode int

const (
	// ModeBrowse is the default: markers link to task detail on click.
	ModeBrowse Mode = iota
	// ModeReadOnly ignores clicks and drags entirely.
	ModeReadOnly
	// ModeCreate turns a click into a provisional marker and, after
	// confirmation, a navigation to the task-creation flow.
	ModeCreate
	// ModeEditPosition lets a single pre-existing marker be dragged.
	ModeEditPosition
)

// TaskPoint is the slice of a task the plane needs to plot it.
type TaskPoint struct {
	ID    int64
	State string
	X     float64
	Y     float64
}

// Marker is one plotted task. ElementID is the stable DOM/SVG id for the
// marker group; Scale and Opacity carry highlight state.
type Marker struct {
	ElementID   string
	Task        TaskPoint
	Display     Point
	Scale       float64
	Opacity     float64
	Provisional bool
}

// PointerEvent is a raw pointer/touch location in device space, together
// with the canvas geometry needed to map it into the viewBox. CanvasWidth
// is the rendered width; the viewBox side is the plane's Size.
type PointerEvent struct {
	LayerX      float64
	LayerY      float64
	OffsetLeft  float64
	OffsetTop   float64
	CanvasWidth float64
}

// Config selects a plane's mode and data sources, read once from the
// bootstrap element's data-* attributes.
type Config struct {
	Size        float64
	Mode        Mode
	TopicID     *int64
	TasksURL    string
	Highlight   int64
	TrashOnly   bool
	Provisional *Point
}

// ConfigFromDataAttrs interprets the markup attributes the server renders:
// data-topic-id, data-tasks-url, data-graph-readonly, data-graph-new-task,
// data-highlight-task, data-trash-only, data-x/data-y, data-graph-size.
func ConfigFromDataAttrs(attrs map[string]string) Config {
	cfg := Config{Size: DefaultSize, Mode: ModeBrowse}
	if v, ok := attrs["data-graph-size"]; ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.Size = n
		}
	}
	if v, ok := attrs["data-topic-id"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TopicID = &n
		}
	}
	cfg.TasksURL = attrs["data-tasks-url"]
	if v, ok := attrs["data-highlight-task"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Highlight = n
		}
	}
	cfg.TrashOnly = attrs["data-trash-only"] == "true"
	if x, okX := attrs["data-x"]; okX {
		if y, okY := attrs["data-y"]; okY {
			px, errX := strconv.ParseFloat(x, 64)
			py, errY := strconv.ParseFloat(y, 64)
			if errX == nil && errY == nil {
				cfg.Provisional = &Point{X: px, Y: py}
				cfg.Mode = ModeEditPosition
			}
		}
	}
	// explicit flags win over the provisional-point inference
	if attrs["data-graph-new-task"] == "true" {
		cfg.Mode = ModeCreate
	}
	if attrs["data-graph-readonly"] == "true" {
		cfg.Mode = ModeReadOnly
	}
	return cfg
}

// dragState tracks one in-flight drag.
type dragState struct {
	marker       *Marker
	wasClickable bool
}

// Plane is one rendered grid instance. All state is per-instance; two
// planes on one page never interact.
type Plane struct {
	id        string
	tf        Transform
	cfg       Config
	mode      Mode
	markers   []*Marker
	byTask    map[int64]*Marker
	highlight int64
	drag      *dragState
	// suppressClick consumes the click browsers fire after a drag release
	suppressClick bool
	// markerClickable is forced off for the dragged marker during a drag
	markerClickable map[string]bool
	// Readout is the live coordinate display updated while dragging.
	Readout Point
	// hovering suppresses click-to-create while the pointer is over a marker
	hovering bool
}

// New builds a plane from its bootstrap config.
func New(cfg Config) *Plane {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	p := &Plane{
		id:              "graph-" + uuid.NewString(),
		tf:              NewTransform(cfg.Size),
		cfg:             cfg,
		mode:            cfg.Mode,
		byTask:          map[int64]*Marker{},
		markerClickable: map[string]bool{},
		highlight:       cfg.Highlight,
	}
	if cfg.Provisional != nil {
		m := p.plot(TaskPoint{X: cfg.Provisional.X, Y: cfg.Provisional.Y})
		m.Provisional = true
		p.Readout = *cfg.Provisional
	}
	return p
}

// ID returns the plane's element id.
func (p *Plane) ID() string { return p.id }

// Mode returns the current interaction mode.
func (p *Plane) Mode() Mode { return p.mode }

// SetMode switches interaction modes and resets transient drag state.
func (p *Plane) SetMode(m Mode) {
	p.mode = m
	p.drag = nil
	p.suppressClick = false
}

// Markers returns the plotted markers in plot order.
func (p *Plane) Markers() []*Marker { return p.markers }

func (p *Plane) plot(t TaskPoint) *Marker {
	m := &Marker{
		ElementID: "task-" + uuid.NewString(),
		Task:      t,
		Display:   p.tf.ToDisplay(Point{X: t.X, Y: t.Y}),
		Scale:     1,
		Opacity:   1,
	}
	p.markers = append(p.markers, m)
	if t.ID != 0 {
		p.byTask[t.ID] = m
	}
	// readonly planes plot but never wire marker clicks
	p.markerClickable[m.ElementID] = p.mode != ModeReadOnly
	return m
}

// Plot places a task marker and applies any pending highlight target.
func (p *Plane) Plot(t TaskPoint) *Marker {
	m := p.plot(t)
	if p.highlight != 0 {
		p.applyHighlight()
	}
	return m
}

// ApplyTasks is the fetch-completion callback. It plots unconditionally:
// read-only planes (trash views render historical, even out-of-bound,
// positions) still show their markers, and the current mode at apply time
// only decides whether the new markers get click wiring.
func (p *Plane) ApplyTasks(tasks []TaskPoint) {
	for _, t := range tasks {
		p.Plot(t)
	}
}

// Highlight emphasizes exactly one marker and dims the rest. Idempotent
// and reversible: a later call with a different id re-normalizes previous
// targets, and the last call wins.
func (p *Plane) Highlight(taskID int64) {
	p.highlight = taskID
	p.applyHighlight()
}

func (p *Plane) applyHighlight() {
	for _, m := range p.markers {
		switch {
		case p.highlight == 0:
			m.Scale, m.Opacity = 1, 1
		case m.Task.ID == p.highlight:
			m.Scale, m.Opacity = 1.5, 1
		default:
			m.Scale, m.Opacity = 1, 0.4
		}
	}
}

// PointerToDomain converts a raw pointer location into domain coordinates,
// honouring the canvas's offset and its rendered-size-to-viewBox ratio.
// Out-of-viewBox events produce valid out-of-range domain points.
func (p *Plane) PointerToDomain(ev PointerEvent) Point {
	ratio := 1.0
	if ev.CanvasWidth > 0 {
		ratio = p.tf.Size / ev.CanvasWidth
	}
	display := Point{
		X: (ev.LayerX - ev.OffsetLeft) * ratio,
		Y: (ev.LayerY - ev.OffsetTop) * ratio,
	}
	return p.tf.ToDomain(display)
}

// MarkerEnter and MarkerLeave track pointer hover over markers; while
// hovering, plane-level click-to-create is suppressed so clicking a marker
// never doubles as a create click.
func (p *Plane) MarkerEnter(taskID int64) { p.hovering = true }
func (p *Plane) MarkerLeave(taskID int64) { p.hovering = false }

// Dragging reports whether a drag is in flight.
func (p *Plane) Dragging() bool { return p.drag != nil }

// PointerDown begins a drag in edit-position mode when it lands on the
// plane's provisional/editable marker. While dragging, the marker's own
// click handler is forced off; the prior value is restored on release.
func (p *Plane) PointerDown(taskID int64) {
	if p.mode != ModeEditPosition {
		return
	}
	var m *Marker
	if taskID != 0 {
		m = p.byTask[taskID]
	} else {
		for _, cand := range p.markers {
			if cand.Provisional {
				m = cand
				break
			}
		}
	}
	if m == nil {
		return
	}
	p.drag = &dragState{marker: m, wasClickable: p.markerClickable[m.ElementID]}
	p.markerClickable[m.ElementID] = false
}

// PointerMove updates the dragged marker's display position and the live
// coordinate readout. Nothing is committed; saving is an external action.
func (p *Plane) PointerMove(ev PointerEvent) {
	if p.drag == nil {
		return
	}
	domain := p.PointerToDomain(ev)
	p.drag.marker.Task.X = domain.X
	p.drag.marker.Task.Y = domain.Y
	p.drag.marker.Display = p.tf.ToDisplay(domain)
	p.Readout = domain
}

// PointerUp ends a drag. The click the browser fires on release is
// consumed so it cannot double as a click-to-create.
func (p *Plane) PointerUp() {
	if p.drag == nil {
		return
	}
	p.markerClickable[p.drag.marker.ElementID] = p.drag.wasClickable
	p.drag = nil
	p.suppressClick = true
}

// ClickResult is what a plane-level click produced.
type ClickResult struct {
	// Provisional is the marker a create-mode click plotted, awaiting
	// ConfirmCreate or DeclineCreate.
	Provisional *Marker
	// NavigateURL is set for browse-mode clicks on a marker.
	NavigateURL string
}

// Click handles a plane-level click. Read-only planes ignore it; a click
// immediately after a drag release is consumed; hovering over a marker
// suppresses create.
func (p *Plane) Click(ev PointerEvent) ClickResult {
	if p.suppressClick {
		p.suppressClick = false
		return ClickResult{}
	}
	switch p.mode {
	case ModeReadOnly, ModeEditPosition:
		return ClickResult{}
	case ModeCreate:
		if p.hovering {
			return ClickResult{}
		}
		domain := p.PointerToDomain(ev)
		m := p.plot(TaskPoint{X: domain.X, Y: domain.Y})
		m.Provisional = true
		return ClickResult{Provisional: m}
	default: // ModeBrowse: marker clicks navigate to the task detail view
		if p.hovering {
			if m := p.markerAtDisplay(ev); m != nil && m.Task.ID != 0 {
				return ClickResult{NavigateURL: fmt.Sprintf("/tasks/%d", m.Task.ID)}
			}
		}
		return ClickResult{}
	}
}

// markerAtDisplay finds the nearest clickable marker within the marker
// radius. Markers whose click handler is off (readonly plots, in-flight
// drags) are invisible to it.
func (p *Plane) markerAtDisplay(ev PointerEvent) *Marker {
	ratio := 1.0
	if ev.CanvasWidth > 0 {
		ratio = p.tf.Size / ev.CanvasWidth
	}
	x := (ev.LayerX - ev.OffsetLeft) * ratio
	y := (ev.LayerY - ev.OffsetTop) * ratio
	var best *Marker
	bestDist := markerRadius * markerRadius
	for _, m := range p.markers {
		if !p.markerClickable[m.ElementID] {
			continue
		}
		dx := m.Display.X - x
		dy := m.Display.Y - y
		if d := dx*dx + dy*dy; d <= bestDist {
			best = m
			bestDist = d
		}
	}
	return best
}

// ConfirmCreate resolves a provisional marker into a navigation URL for
// the task-creation flow, seeding the clicked coordinates (and topic when
// the plane is bound to one).
func (p *Plane) ConfirmCreate(m *Marker) string {
	q := url.Values{}
	if p.cfg.TopicID != nil {
		q.Set("topic", strconv.FormatInt(*p.cfg.TopicID, 10))
	}
	q.Set("x", strconv.FormatFloat(Round2(m.Task.X), 'f', -1, 64))
	q.Set("y", strconv.FormatFloat(Round2(m.Task.Y), 'f', -1, 64))
	return "/tasks/create?" + q.Encode()
}

// DeclineCreate removes a provisional marker (rendered as a fade-out).
func (p *Plane) DeclineCreate(m *Marker) {
	for i, cand := range p.markers {
		if cand == m {
			p.markers = append(p.markers[:i], p.markers[i+1:]...)
			break
		}
	}
	delete(p.markerClickable, m.ElementID)
	if m.Task.ID != 0 {
		delete(p.byTask, m.Task.ID)
	}
}
