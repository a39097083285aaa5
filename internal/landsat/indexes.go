package landsat

import "github.com/forest-guardian/tidalflat-cli/internal/pixel"

// Index is a named per-observation spectral index.
type Index struct {
	Name string
	Func func(Bands) pixel.Value
}

// Indices are the reduced spectral indices, in composite order.
var Indices = []Index{
	{Name: "awei", Func: AWEI},
	{Name: "ndwi", Func: NDWI},
	{Name: "mndwi", Func: MNDWI},
	{Name: "ndvi", Func: NDVI},
}

func normalizedDifference(a, b pixel.Value) pixel.Value {
	av, ok := a.Get()
	if !ok {
		return pixel.NoData
	}
	bv, ok := b.Get()
	if !ok {
		return pixel.NoData
	}
	denominator := av + bv
	if denominator == 0 {
		return pixel.NoData
	}
	return pixel.Of((av - bv) / denominator)
}

// NDWI = (green - nir) / (green + nir)
func NDWI(b Bands) pixel.Value {
	return normalizedDifference(b.Green, b.NIR)
}

// MNDWI = (green - swir1) / (green + swir1)
func MNDWI(b Bands) pixel.Value {
	return normalizedDifference(b.Green, b.SWIR1)
}

// NDVI = (nir - red) / (nir + red)
func NDVI(b Bands) pixel.Value {
	return normalizedDifference(b.NIR, b.Red)
}

// AWEI = 4*(green - swir1) - (0.25*nir + 2.75*swir2)
func AWEI(b Bands) pixel.Value {
	green, ok1 := b.Green.Get()
	swir1, ok2 := b.SWIR1.Get()
	nir, ok3 := b.NIR.Get()
	swir2, ok4 := b.SWIR2.Get()
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return pixel.NoData
	}
	return pixel.Of(4*(green-swir1) - (0.25*nir + 2.75*swir2))
}
