package imaging

import (
	"image"
	"math"
	"slices"

	"github.com/erazemk/garderoba/internal/model"
)

const (
	colorSampleDimension = 100
	shapeSampleDimension = 200

	clusterCount      = 5
	clusterIterations = 20
	minClusterPercent = 5.0

	// Squared RGB distance beyond which a pixel differs from the background.
	foregroundDistance = 60 * 60
)

// Size types and levels reported in ShapeMetrics.
const (
	SizeWide   = "wide"
	SizeTall   = "tall"
	SizeSquare = "square"

	SizeLarge  = "large"
	SizeMedium = "medium"
	SizeSmall  = "small"
)

// Analysis is a best-effort guess at what a photographed garment is.
type Analysis struct {
	Colors             []model.DetectedColor
	Shape              *model.ShapeMetrics
	Kind               *model.Kind
	CategoryConfidence float64
	Confidence         float64
}

// Detection converts the analysis into the stored form.
func (a *Analysis) Detection() *model.Detection {
	return &model.Detection{
		Kind:       a.Kind,
		Colors:     a.Colors,
		Confidence: a.Confidence,
		Shape:      a.Shape,
	}
}

// Analyze extracts dominant colors, silhouette metrics and a category guess
// from a garment photo. It never fails; an image with no distinguishable
// foreground yields zero confidence and no shape.
func Analyze(img image.Image) *Analysis {
	a := &Analysis{
		Colors: dominantColors(toRGBA(downscale(img, colorSampleDimension))),
	}

	a.Shape = analyzeShape(toRGBA(downscale(img, shapeSampleDimension)))
	if a.Shape == nil {
		return a
	}

	a.Kind = guessKind(a.Shape)
	a.CategoryConfidence = categoryConfidence(a.Shape.AspectRatio)

	colorConfidence := math.Min(0.2*float64(len(a.Colors)), 1)
	shapeConfidence := 0.5
	if a.Shape.Area > 1000 {
		shapeConfidence = 0.8
	}
	a.Confidence = math.Round((colorConfidence+shapeConfidence)/2*100) / 100
	return a
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

type rgb [3]float64

func (c rgb) dist(o rgb) float64 {
	dr, dg, db := c[0]-o[0], c[1]-o[1], c[2]-o[2]
	return dr*dr + dg*dg + db*db
}

func pixelAt(img *image.RGBA, x, y int) rgb {
	c := img.RGBAAt(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	return rgb{float64(c.R), float64(c.G), float64(c.B)}
}

// dominantColors clusters pixels with k-means. Centers are seeded by
// farthest-point selection so the result is deterministic.
func dominantColors(img *image.RGBA) []model.DetectedColor {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	pixels := make([]rgb, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pixels = append(pixels, pixelAt(img, x, y))
		}
	}
	if len(pixels) == 0 {
		return nil
	}

	centers := seedCenters(pixels, clusterCount)
	labels := make([]int, len(pixels))
	counts := make([]int, len(centers))

	for range clusterIterations {
		changed := false
		for i, p := range pixels {
			best := nearest(centers, p)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}

		sums := make([]rgb, len(centers))
		clear(counts)
		for i, p := range pixels {
			l := labels[i]
			counts[l]++
			sums[l][0] += p[0]
			sums[l][1] += p[1]
			sums[l][2] += p[2]
		}
		for k := range centers {
			if counts[k] > 0 {
				n := float64(counts[k])
				centers[k] = rgb{sums[k][0] / n, sums[k][1] / n, sums[k][2] / n}
			}
		}
		if !changed {
			break
		}
	}

	var colors []model.DetectedColor
	for k, center := range centers {
		percent := float64(counts[k]) / float64(len(pixels)) * 100
		if percent < minClusterPercent {
			continue
		}
		c := [3]uint8{
			uint8(math.Round(center[0])),
			uint8(math.Round(center[1])),
			uint8(math.Round(center[2])),
		}
		colors = append(colors, model.DetectedColor{
			Name:    ColorName(c[0], c[1], c[2]),
			Percent: math.Round(percent*10) / 10,
			RGB:     c,
		})
	}
	slices.SortStableFunc(colors, func(a, b model.DetectedColor) int {
		switch {
		case a.Percent > b.Percent:
			return -1
		case a.Percent < b.Percent:
			return 1
		}
		return 0
	})
	return colors
}

func seedCenters(pixels []rgb, k int) []rgb {
	centers := []rgb{pixels[0]}
	minDist := make([]float64, len(pixels))
	for i, p := range pixels {
		minDist[i] = p.dist(centers[0])
	}
	for len(centers) < k {
		far := 0
		for i := range pixels {
			if minDist[i] > minDist[far] {
				far = i
			}
		}
		c := pixels[far]
		centers = append(centers, c)
		for i, p := range pixels {
			minDist[i] = math.Min(minDist[i], p.dist(c))
		}
	}
	return centers
}

func nearest(centers []rgb, p rgb) int {
	best, bestDist := 0, math.Inf(1)
	for k, c := range centers {
		if d := p.dist(c); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

// hsvRange bounds hue on a 0-180 scale and saturation and value on 0-255.
type hsvRange struct {
	hMin, sMin, vMin float64
	hMax, sMax, vMax float64
}

func (r hsvRange) contains(h, s, v float64) bool {
	return h >= r.hMin && h <= r.hMax && s >= r.sMin && s <= r.sMax && v >= r.vMin && v <= r.vMax
}

var namedColors = []struct {
	name   string
	ranges []hsvRange
}{
	{"black", []hsvRange{{0, 0, 0, 180, 255, 50}}},
	{"white", []hsvRange{{0, 0, 200, 180, 30, 255}}},
	{"gray", []hsvRange{{0, 0, 50, 180, 30, 200}}},
	{"red", []hsvRange{{0, 100, 100, 10, 255, 255}, {170, 100, 100, 180, 255, 255}}},
	{"pink", []hsvRange{{140, 50, 100, 180, 255, 255}}},
	{"orange", []hsvRange{{10, 100, 100, 25, 255, 255}}},
	{"yellow", []hsvRange{{25, 100, 100, 35, 255, 255}}},
	{"green", []hsvRange{{35, 100, 100, 85, 255, 255}}},
	{"blue", []hsvRange{{100, 100, 100, 130, 255, 255}}},
	{"purple", []hsvRange{{130, 100, 100, 160, 255, 255}}},
	{"brown", []hsvRange{{10, 100, 20, 20, 255, 200}}},
	{"beige", []hsvRange{{20, 30, 150, 30, 100, 255}}},
}

// ColorName maps an RGB color to the closest named color, or "other".
func ColorName(r, g, b uint8) string {
	h, s, v := toHSV(r, g, b)
	for _, nc := range namedColors {
		for _, rng := range nc.ranges {
			if rng.contains(h, s, v) {
				return nc.name
			}
		}
	}
	return "other"
}

// toHSV returns hue in [0,180) and saturation and value in [0,255].
func toHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC * 255
	}
	if delta == 0 {
		return 0, s, v
	}

	switch maxC {
	case rf:
		h = 60 * (gf - bf) / delta
	case gf:
		h = 60*(bf-rf)/delta + 120
	default:
		h = 60*(rf-gf)/delta + 240
	}
	if h < 0 {
		h += 360
	}
	return h / 2, s, v
}

// analyzeShape separates the garment from a background sampled along the
// image border and measures its silhouette.
func analyzeShape(img *image.RGBA) *model.ShapeMetrics {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w < 3 || h < 3 {
		return nil
	}

	var bg rgb
	var n float64
	for x := 0; x < w; x++ {
		for _, y := range []int{0, h - 1} {
			p := pixelAt(img, x, y)
			bg[0], bg[1], bg[2] = bg[0]+p[0], bg[1]+p[1], bg[2]+p[2]
			n++
		}
	}
	for y := 1; y < h-1; y++ {
		for _, x := range []int{0, w - 1} {
			p := pixelAt(img, x, y)
			bg[0], bg[1], bg[2] = bg[0]+p[0], bg[1]+p[1], bg[2]+p[2]
			n++
		}
	}
	bg = rgb{bg[0] / n, bg[1] / n, bg[2] / n}

	mask := make([]bool, w*h)
	area := 0
	minX, minY, maxX, maxY := w, h, -1, -1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if pixelAt(img, x, y).dist(bg) <= foregroundDistance {
				continue
			}
			mask[y*w+x] = true
			area++
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if area == 0 {
		return nil
	}

	isFg := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && mask[y*w+x]
	}
	perimeter := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			if !isFg(x-1, y) || !isFg(x+1, y) || !isFg(x, y-1) || !isFg(x, y+1) {
				perimeter++
			}
		}
	}

	boxW, boxH := maxX-minX+1, maxY-minY+1
	m := &model.ShapeMetrics{
		AspectRatio: float64(boxW) / float64(boxH),
		AreaRatio:   float64(area) / float64(w*h),
		Circularity: math.Min(4*math.Pi*float64(area)/float64(perimeter*perimeter), 1),
		Area:        area,
	}

	switch {
	case m.AspectRatio > 1.5:
		m.SizeType = SizeWide
	case m.AspectRatio < 0.7:
		m.SizeType = SizeTall
	default:
		m.SizeType = SizeSquare
	}
	switch {
	case m.AreaRatio > 0.7:
		m.SizeLevel = SizeLarge
	case m.AreaRatio > 0.3:
		m.SizeLevel = SizeMedium
	default:
		m.SizeLevel = SizeSmall
	}
	return m
}

// guessKind reads wide silhouettes as bottoms and tall ones as tops.
func guessKind(m *model.ShapeMetrics) *model.Kind {
	var k model.Kind
	switch {
	case m.AspectRatio > 2.0:
		k = model.KindLong
	case m.AspectRatio > 1.3:
		k = model.KindShort
	case m.AspectRatio < 0.8 && m.SizeLevel == SizeLarge:
		k = model.KindLongSleeveHeavy
	case m.AspectRatio < 0.8:
		k = model.KindShortSleeve
	default:
		return nil
	}
	return &k
}

func categoryConfidence(aspect float64) float64 {
	c := 0.5
	switch {
	case aspect > 1.5 || aspect < 0.7:
		c += 0.3
	case aspect >= 1.0 && aspect <= 1.3:
		c -= 0.2
	}
	return math.Min(math.Max(c, 0), 1)
}
