package pipeline

import (
	"go-box-pipeline/internal/geometry"
	"go-box-pipeline/internal/model"
)

// computeGeometry derives the geometric fields of a record. Timing and the
// image are filled in by the caller.
func computeGeometry(rec model.Record) model.EnrichedRecord {
	return model.EnrichedRecord{
		Record:      rec,
		SurfaceArea: geometry.SurfaceArea(rec.Height, rec.Weight, rec.Breadth),
		Capacity:    geometry.Capacity(rec.Height, rec.Weight, rec.Breadth),
	}
}
