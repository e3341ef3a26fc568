package jigsaw

import (
	"image"

	"github.com/PhantomInTheWire/jigsaw-pipeline/pkg/observability"
)

// Edge names the orientation of a shared edge.
type Edge string

const (
	Vertical   Edge = "vertical"   // between a piece and its left neighbor
	Horizontal Edge = "horizontal" // between a piece and its up neighbor
)

// Connector is one planned tab transfer across a shared edge.
type Connector struct {
	Edge        Edge
	Donor       Position
	Receiver    Position
	DonorOff    image.Point
	ReceiverOff image.Point
}

// Connect cuts a connector into every interior edge. Each piece handles the
// edges to its left and up neighbors, so every interior edge is visited
// exactly once. It may only be called once per grid.
func (g *Grid) Connect() error {
	if g.connected {
		return newError(AlreadyConnected, "connectors were already cut")
	}
	g.connected = true

	tab := Tab(g.margin)
	count := 0
	for i := range g.canvases {
		c := &g.canvases[i]
		if left, ok := g.Left(c.Pos); ok {
			g.apply(tab, g.verticalConnector(left.Pos, c.Pos, g.bits.Bit()))
			count++
		}
		if up, ok := g.Up(c.Pos); ok {
			g.apply(tab, g.horizontalConnector(up.Pos, c.Pos, g.bits.Bit()))
			count++
		}
	}
	g.logger.Debug("cut connectors", "count", count)
	return nil
}

func (g *Grid) apply(tab Polygon, conn Connector) {
	donor := g.At(conn.Donor.X, conn.Donor.Y)
	receiver := g.At(conn.Receiver.X, conn.Receiver.Y)
	DrawMerge(tab, donor, receiver, conn.DonorOff, conn.ReceiverOff)

	g.logger.Debug("connector", "edge", conn.Edge, "donor", conn.Donor, "receiver", conn.Receiver)
	observability.Jigsaw().OnConnector(string(conn.Edge),
		conn.Donor.X, conn.Donor.Y, conn.Receiver.X, conn.Receiver.Y)
}

// verticalConnector plans the tab across the edge between left and right.
// The donor gives up the strip just inside the shared edge and the receiver
// takes it into its margin on that edge.
func (g *Grid) verticalConnector(left, right Position, rightDonates bool) Connector {
	size := g.CanvasSize()
	m := g.margin
	y := size.Y/2 - m/2
	if rightDonates {
		return Connector{
			Edge: Vertical, Donor: right, Receiver: left,
			DonorOff: image.Pt(m, y), ReceiverOff: image.Pt(size.X-m, y),
		}
	}
	return Connector{
		Edge: Vertical, Donor: left, Receiver: right,
		DonorOff: image.Pt(size.X-2*m, y), ReceiverOff: image.Pt(0, y),
	}
}

// horizontalConnector is verticalConnector for the edge between up and down.
func (g *Grid) horizontalConnector(up, down Position, downDonates bool) Connector {
	size := g.CanvasSize()
	m := g.margin
	x := size.X/2 - m/2
	if downDonates {
		return Connector{
			Edge: Horizontal, Donor: down, Receiver: up,
			DonorOff: image.Pt(x, m), ReceiverOff: image.Pt(x, size.Y-m),
		}
	}
	return Connector{
		Edge: Horizontal, Donor: up, Receiver: down,
		DonorOff: image.Pt(x, size.Y-2*m), ReceiverOff: image.Pt(x, 0),
	}
}
