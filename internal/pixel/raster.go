package pixel

// LabelRaster holds one categorical label per grid pixel, row-major.
type LabelRaster struct {
	Width  int
	Height int
	Labels []Label
}

func NewLabelRaster(width, height int) *LabelRaster {
	return &LabelRaster{
		Width:  width,
		Height: height,
		Labels: make([]Label, width*height),
	}
}

func (r *LabelRaster) At(x, y int) Label {
	return r.Labels[y*r.Width+x]
}

func (r *LabelRaster) Set(x, y int, l Label) {
	r.Labels[y*r.Width+x] = l
}

func (r *LabelRaster) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < r.Width && y < r.Height
}

// Count returns the number of pixels holding a label.
func (r *LabelRaster) Count() int {
	n := 0
	for _, l := range r.Labels {
		if !l.IsNoData() {
			n++
		}
	}
	return n
}

// Window copies the labels of a tile into a new row-major slice.
func (r *LabelRaster) Window(t Tile) []Label {
	out := make([]Label, 0, t.W*t.H)
	for y := t.Y0; y < t.Y0+t.H; y++ {
		out = append(out, r.Labels[y*r.Width+t.X0:y*r.Width+t.X0+t.W]...)
	}
	return out
}
