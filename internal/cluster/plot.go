package cluster

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var plotPalette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
}

// SavePlot2D renders the clustering as a 2-D scatter PNG: one color
// per cluster, mean centers as crosses, medoids as ring markers.
// Rows wider than two dimensions are projected with a throwaway 2-D
// fit first; the projection is for the picture only and is never part
// of the frozen assets.
func SavePlot2D(res *TrainResult, names map[int]string, path string) error {
	if res == nil || len(res.Rows) == 0 {
		return fmt.Errorf("plot: nothing to draw")
	}

	pts := res.Rows
	if len(pts[0]) > 2 {
		projected, _, err := FitPCA(res.Rows, 2, 0)
		if err != nil {
			return fmt.Errorf("plot: projecting to 2d: %w", err)
		}
		pts = projected
	}

	p := plot.New()
	p.Title.Text = "Progress clusters (2-D projection)"
	p.X.Label.Text = "pc1"
	p.Y.Label.Text = "pc2"

	byCluster := map[int]plotter.XYs{}
	for i, row := range pts {
		c := res.Labels[i]
		byCluster[c] = append(byCluster[c], plotter.XY{X: at(row, 0), Y: at(row, 1)})
	}

	medoids := map[int]struct{}{}
	for _, cr := range res.Review {
		if cr.Medoid >= 0 {
			medoids[cr.Medoid] = struct{}{}
		}
	}

	for c := 0; c < len(byCluster); c++ {
		xys, ok := byCluster[c]
		if !ok {
			continue
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("plot: cluster %d scatter: %w", c, err)
		}
		s.GlyphStyle.Color = plotPalette[c%len(plotPalette)]
		s.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(s)

		legend := fmt.Sprintf("cluster %d", c)
		if name, ok := names[c]; ok {
			legend = fmt.Sprintf("%d: %s", c, name)
		}
		p.Legend.Add(legend, s)
	}

	var centerXYs plotter.XYs
	for c := 0; c < len(byCluster); c++ {
		var cx, cy float64
		xys := byCluster[c]
		for _, xy := range xys {
			cx += xy.X
			cy += xy.Y
		}
		n := float64(len(xys))
		if n > 0 {
			centerXYs = append(centerXYs, plotter.XY{X: cx / n, Y: cy / n})
		}
	}
	if len(centerXYs) > 0 {
		cs, err := plotter.NewScatter(centerXYs)
		if err != nil {
			return fmt.Errorf("plot: centers scatter: %w", err)
		}
		cs.GlyphStyle.Shape = draw.CrossGlyph{}
		cs.GlyphStyle.Color = color.Black
		cs.GlyphStyle.Radius = vg.Points(6)
		p.Add(cs)
		p.Legend.Add("center", cs)
	}

	var medoidXYs plotter.XYs
	for i := range pts {
		if _, ok := medoids[i]; ok {
			medoidXYs = append(medoidXYs, plotter.XY{X: at(pts[i], 0), Y: at(pts[i], 1)})
		}
	}
	if len(medoidXYs) > 0 {
		ms, err := plotter.NewScatter(medoidXYs)
		if err != nil {
			return fmt.Errorf("plot: medoids scatter: %w", err)
		}
		ms.GlyphStyle.Shape = draw.RingGlyph{}
		ms.GlyphStyle.Color = color.Black
		ms.GlyphStyle.Radius = vg.Points(5)
		p.Add(ms)
		p.Legend.Add("medoid", ms)
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("plot: saving %s: %w", path, err)
	}
	return nil
}

func at(row []float64, i int) float64 {
	if i < len(row) {
		return row[i]
	}
	return 0
}
