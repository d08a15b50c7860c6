package plane

import (
	"fmt"
	"io"
)

// markerRadius is the task-circle radius in viewBox units; hit tests and
// rendering share it.
const markerRadius = 15.0

// axisInset keeps the axis lines and arrowheads inside the viewBox.
const axisInset = 20.0

// markerFill derives a stable pastel fill from the task id so a task keeps
// its colour across renders and across planes. Provisional markers (id 0)
// get a neutral grey.
func markerFill(taskID int64) string {
	if taskID == 0 {
		return "#cccccc"
	}
	hue := (uint64(taskID) * 137) % 360
	return fmt.Sprintf("hsl(%d, 70%%, 80%%)", hue)
}

// RenderSVG writes the plane as a standalone SVG document: the two axes
// with arrowheads, then one group per marker carrying its element id,
// highlight scale and opacity.
func (p *Plane) RenderSVG(w io.Writer) error {
	size := p.tf.Size
	half := size / 2

	if _, err := fmt.Fprintf(w,
		`<svg id=%q viewBox="0 0 %g %g" xmlns="http://www.w3.org/2000/svg">`+"\n",
		p.id, size, size); err != nil {
		return err
	}

	// axes
	fmt.Fprintf(w, `  <line x1="%g" y1="%g" x2="%g" y2="%g" stroke="black" stroke-width="2"/>`+"\n",
		axisInset, half, size-axisInset, half)
	fmt.Fprintf(w, `  <line x1="%g" y1="%g" x2="%g" y2="%g" stroke="black" stroke-width="2"/>`+"\n",
		half, axisInset, half, size-axisInset)

	// arrowheads at the positive ends (right and top)
	fmt.Fprintf(w, `  <path d="M %g %g L %g %g L %g %g Z" fill="black"/>`+"\n",
		size-axisInset, half, size-axisInset-10, half-6, size-axisInset-10, half+6)
	fmt.Fprintf(w, `  <path d="M %g %g L %g %g L %g %g Z" fill="black"/>`+"\n",
		half, axisInset, half-6, axisInset+10, half+6, axisInset+10)

	for _, m := range p.markers {
		stroke := "black"
		if m.Task.State == "complete" {
			stroke = "green"
		}
		fmt.Fprintf(w,
			`  <g id=%q transform="translate(%g %g) scale(%g)" opacity="%g">`+"\n",
			m.ElementID, m.Display.X, m.Display.Y, m.Scale, m.Opacity)
		fmt.Fprintf(w, `    <circle r="%g" fill=%q stroke=%q stroke-width="2"/>`+"\n",
			markerRadius, markerFill(m.Task.ID), stroke)
		fmt.Fprintf(w, "  </g>\n")
	}

	_, err := fmt.Fprint(w, "</svg>\n")
	return err
}
