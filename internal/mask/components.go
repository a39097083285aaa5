package mask

import (
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/gammazero/workerpool"
)

// forward neighbour offsets; the backward ones are covered by symmetry.
var (
	forward4 = [][2]int{{1, 0}, {0, 1}}
	forward8 = [][2]int{{1, 0}, {0, 1}, {1, 1}, {-1, 1}}
)

type unionFind []int32

func (u unionFind) find(i int32) int32 {
	for u[i] != i {
		u[i] = u[u[i]]
		i = u[i]
	}
	return i
}

// union links the larger root under the smaller so the result does not
// depend on the order of calls.
func (u unionFind) union(a, b int32) {
	ra, rb := u.find(a), u.find(b)
	switch {
	case ra < rb:
		u[rb] = ra
	case rb < ra:
		u[ra] = rb
	}
}

// ComponentSizes returns, for every pixel of r, the number of pixels in its
// connected set of equal labels. No-data pixels belong to no component and
// get 0. Tiles of tileSize are labelled concurrently with a local union-find
// and then merged along their borders.
func ComponentSizes(r *pixel.LabelRaster, tileSize, connectivity, workers int) []int {
	offsets := forward8
	if connectivity == 4 {
		offsets = forward4
	}
	grid := pixel.Grid{Width: r.Width, Height: r.Height}
	tiles := grid.Tiles(tileSize)

	uf := make(unionFind, r.Width*r.Height)
	for i := range uf {
		uf[i] = int32(i)
	}
	same := func(x, y, nx, ny int) bool {
		if !r.InBounds(nx, ny) {
			return false
		}
		a, b := r.At(x, y), r.At(nx, ny)
		if a.IsNoData() || b.IsNoData() {
			return false
		}
		ca, _ := a.Get()
		return b.Is(ca)
	}
	link := func(x, y, nx, ny int) {
		uf.union(int32(y*r.Width+x), int32(ny*r.Width+nx))
	}

	wp := workerpool.New(max(workers, 1))
	for _, t := range tiles {
		wp.Submit(func() {
			for y := t.Y0; y < t.Y0+t.H; y++ {
				for x := t.X0; x < t.X0+t.W; x++ {
					for _, o := range offsets {
						nx, ny := x+o[0], y+o[1]
						if t.Contains(nx, ny) && same(x, y, nx, ny) {
							link(x, y, nx, ny)
						}
					}
				}
			}
		})
	}
	wp.StopWait()

	// Border merge. Only the first and last column and the last row of a
	// tile have forward neighbours in another tile.
	for _, t := range tiles {
		for y := t.Y0; y < t.Y0+t.H; y++ {
			for x := t.X0; x < t.X0+t.W; x++ {
				if x != t.X0 && x != t.X0+t.W-1 && y != t.Y0+t.H-1 {
					continue
				}
				for _, o := range offsets {
					nx, ny := x+o[0], y+o[1]
					if !t.Contains(nx, ny) && same(x, y, nx, ny) {
						link(x, y, nx, ny)
					}
				}
			}
		}
	}

	counts := make(map[int32]int)
	roots := make([]int32, len(uf))
	for i := range uf {
		roots[i] = uf.find(int32(i))
		counts[roots[i]]++
	}
	sizes := make([]int, len(uf))
	for i, l := range r.Labels {
		if !l.IsNoData() {
			sizes[i] = counts[roots[i]]
		}
	}
	return sizes
}
