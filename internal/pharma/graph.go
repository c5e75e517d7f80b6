package pharma

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
	"github.com/pharmaflow/pharmaflow/internal/ui"
)

// Canvas size of the rendered graph.
const (
	GraphWidth  = 800
	GraphHeight = 600
)

// Simulation parameters, matching the force setup the graph was designed
// with: link distance 100, charge -300, collision radius 50.
const (
	linkDistance    = 100.0
	chargeStrength  = -300.0
	collideRadius   = 50.0
	velocityDecay   = 0.6
	alphaMin        = 0.001
	iterations      = 300
	graphMargin     = 40.0
	initialRadius   = 10.0
	minChargeDist2  = 1.0
	jiggleMagnitude = 1e-6
)

// groupColors are indexed by node group: document, finance,
// sustainability, chemistry.
var groupColors = [...]string{"#3b82f6", "#10b981", "#f59e0b", "#8b5cf6"}

// GroupColor returns the fill for a node group. Out-of-range groups wrap.
func GroupColor(group int) string {
	n := len(groupColors)
	return groupColors[(group%n+n)%n]
}

func (d *Dashboard) graph(ctx context.Context, documentID string) *ui.GraphView {
	a, err := d.api.GetAnalysis(ctx, documentID)
	if err != nil {
		d.logger.Error("fetching graph data", zap.String("document", documentID), zap.Error(err))
		return &ui.GraphView{Failed: true, Width: GraphWidth, Height: GraphHeight}
	}
	return LayoutGraph(a.GraphData, GraphWidth, GraphHeight)
}

type body struct {
	x, y, vx, vy float64
}

type edge struct {
	s, t     int
	value    float64
	strength float64
	bias     float64
}

// LayoutGraph positions the graph with a deterministic force simulation and
// fits the result into a width x height canvas. Links whose endpoints are
// not among the nodes are dropped.
func LayoutGraph(g pharmaapi.GraphData, width, height int) *ui.GraphView {
	view := &ui.GraphView{Width: width, Height: height}
	n := len(g.Nodes)
	if n == 0 {
		return view
	}

	index := make(map[int]int, n)
	for i, node := range g.Nodes {
		index[node.ID] = i
	}

	degree := make([]int, n)
	var edges []edge
	for _, l := range g.Links {
		s, ok1 := index[l.Source]
		t, ok2 := index[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		edges = append(edges, edge{s: s, t: t, value: l.Value})
		degree[s]++
		degree[t]++
	}
	for i := range edges {
		e := &edges[i]
		e.strength = 1 / float64(min(degree[e.s], degree[e.t]))
		e.bias = float64(degree[e.s]) / float64(degree[e.s]+degree[e.t])
	}

	cx, cy := float64(width)/2, float64(height)/2
	bodies := make([]body, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := range bodies {
		r := initialRadius * math.Sqrt(0.5+float64(i))
		a := float64(i) * golden
		bodies[i] = body{x: cx + r*math.Cos(a), y: cy + r*math.Sin(a)}
	}

	simulate(bodies, edges, cx, cy)
	fit(bodies, float64(width), float64(height))

	for _, e := range edges {
		s, t := bodies[e.s], bodies[e.t]
		view.Links = append(view.Links, ui.GraphLine{
			X1: s.x, Y1: s.y, X2: t.x, Y2: t.y,
			Width: math.Sqrt(math.Max(e.value, 0)) * 2,
		})
	}
	for i, node := range g.Nodes {
		gn := ui.GraphNode{
			X:     bodies[i].x,
			Y:     bodies[i].y,
			Color: GroupColor(node.Group),
			Label: node.Label,
			Type:  node.Type,
		}
		switch node.Type {
		case pharmaapi.NodeDocument:
			gn.Radius, gn.FontSize, gn.LabelDY = 20, 14, 30
		case pharmaapi.NodeCategory:
			gn.Radius, gn.FontSize, gn.LabelDY = 15, 12, 25
			gn.Bold = true
		default:
			gn.Radius, gn.FontSize, gn.LabelDY = 10, 10, 20
		}
		view.Nodes = append(view.Nodes, gn)
	}
	return view
}

func simulate(bodies []body, edges []edge, cx, cy float64) {
	alpha := 1.0
	alphaDecay := 1 - math.Pow(alphaMin, 1.0/iterations)

	for iter := 0; iter < iterations; iter++ {
		alpha += (0 - alpha) * alphaDecay

		// Springs pull linked nodes toward linkDistance.
		for k, e := range edges {
			s, t := &bodies[e.s], &bodies[e.t]
			dx := t.x + t.vx - s.x - s.vx
			dy := t.y + t.vy - s.y - s.vy
			if dx == 0 && dy == 0 {
				dx, dy = jiggle(k), jiggle(k+1)
			}
			l := math.Hypot(dx, dy)
			l = (l - linkDistance) / l * alpha * e.strength
			dx, dy = dx*l, dy*l
			t.vx -= dx * e.bias
			t.vy -= dy * e.bias
			s.vx += dx * (1 - e.bias)
			s.vy += dy * (1 - e.bias)
		}

		// Every pair repels.
		for i := range bodies {
			for j := range bodies {
				if i == j {
					continue
				}
				dx := bodies[j].x - bodies[i].x
				dy := bodies[j].y - bodies[i].y
				if dx == 0 && dy == 0 {
					dx, dy = jiggle(i), jiggle(j)
				}
				l2 := dx*dx + dy*dy
				if l2 < minChargeDist2 {
					l2 = math.Sqrt(minChargeDist2 * l2)
				}
				w := chargeStrength * alpha / l2
				bodies[i].vx += dx * w
				bodies[i].vy += dy * w
			}
		}

		// Overlapping nodes push each other apart.
		const r = 2 * collideRadius
		for i := range bodies {
			for j := i + 1; j < len(bodies); j++ {
				a, b := &bodies[i], &bodies[j]
				dx := b.x + b.vx - a.x - a.vx
				dy := b.y + b.vy - a.y - a.vy
				l2 := dx*dx + dy*dy
				if l2 >= r*r {
					continue
				}
				if l2 == 0 {
					dx, dy = jiggle(i), jiggle(j)
					l2 = dx*dx + dy*dy
				}
				l := math.Sqrt(l2)
				l = (r - l) / l / 2
				dx, dy = dx*l, dy*l
				a.vx -= dx
				a.vy -= dy
				b.vx += dx
				b.vy += dy
			}
		}

		var mx, my float64
		for i := range bodies {
			b := &bodies[i]
			b.vx *= velocityDecay
			b.vy *= velocityDecay
			b.x += b.vx
			b.y += b.vy
			mx += b.x
			my += b.y
		}
		mx, my = mx/float64(len(bodies))-cx, my/float64(len(bodies))-cy
		for i := range bodies {
			bodies[i].x -= mx
			bodies[i].y -= my
		}
	}
}

// fit scales the layout down, never up, so it fits inside the canvas with a
// margin for labels, and centers it.
func fit(bodies []body, width, height float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, b := range bodies {
		minX, maxX = math.Min(minX, b.x), math.Max(maxX, b.x)
		minY, maxY = math.Min(minY, b.y), math.Max(maxY, b.y)
	}

	availW, availH := width-2*graphMargin, height-2*graphMargin
	scale := 1.0
	if w := maxX - minX; w > availW && w > 0 {
		scale = availW / w
	}
	if h := maxY - minY; h > availH && h > 0 {
		scale = math.Min(scale, availH/h)
	}

	offX := (width - (maxX-minX)*scale) / 2
	offY := (height - (maxY-minY)*scale) / 2
	for i := range bodies {
		bodies[i].x = offX + (bodies[i].x-minX)*scale
		bodies[i].y = offY + (bodies[i].y-minY)*scale
	}
}

// jiggle is a tiny deterministic offset that separates coincident nodes.
func jiggle(k int) float64 {
	return jiggleMagnitude * float64(k%5+1)
}
