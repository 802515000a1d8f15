package compiler

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/brimdata/htsql"
)

// ArrowSchema describes the rows of the query as an Arrow schema.  Every
// field is nullable.  Domains without an Arrow counterpart map to
// strings.
func (c *CompiledSQL) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(c.Shape))
	for _, col := range c.Shape {
		fields = append(fields, arrow.Field{
			Name:     col.Title,
			Type:     arrowType(col.Domain),
			Nullable: true,
		})
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(d htsql.Domain) arrow.DataType {
	switch d := d.(type) {
	case *htsql.BooleanDomain:
		return arrow.FixedWidthTypes.Boolean
	case *htsql.IntegerDomain:
		switch {
		case d.Size > 0 && d.Size <= 16:
			return arrow.PrimitiveTypes.Int16
		case d.Size > 0 && d.Size <= 32:
			return arrow.PrimitiveTypes.Int32
		}
		return arrow.PrimitiveTypes.Int64
	case *htsql.DecimalDomain:
		if d.Precision > 0 && d.Precision <= 38 {
			return &arrow.Decimal128Type{Precision: int32(d.Precision), Scale: int32(d.Scale)}
		}
		return arrow.BinaryTypes.String
	case *htsql.FloatDomain:
		if d.Size == 32 {
			return arrow.PrimitiveTypes.Float32
		}
		if d.Size == 16 {
			return arrow.FixedWidthTypes.Float16
		}
		return arrow.PrimitiveTypes.Float64
	case *htsql.DateDomain:
		return arrow.FixedWidthTypes.Date32
	case *htsql.TimeDomain:
		return arrow.FixedWidthTypes.Time64us
	case *htsql.DateTimeDomain:
		return arrow.FixedWidthTypes.Timestamp_us
	}
	return arrow.BinaryTypes.String
}
