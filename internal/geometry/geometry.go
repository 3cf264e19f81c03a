// Package geometry holds the box calculations applied to every record.
//
// The functions are total over float64: zero and negative edges are not
// rejected here, callers validate positivity upstream.
package geometry

// SurfaceArea returns the total surface area of a rectangular box,
// 2(wb + wh + bh). width is the table's "weight" column.
func SurfaceArea(height, width, breadth float64) float64 {
	return 2 * (width*breadth + width*height + breadth*height)
}

// Capacity returns the volume of a rectangular box.
func Capacity(height, width, breadth float64) float64 {
	return height * width * breadth
}
