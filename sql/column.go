package sql

// Column describes one column of a schema: its name, logical type, and
// on-tile layout. Size is the declared width in bytes for fixed columns and
// a capacity hint (ignored by storage) for variable columns. Fixed selects
// between inline, constant-offset storage and pool-backed, offset+length
// storage; only CharacterType and BinaryType columns may be non-fixed.
type Column struct {
	Name    Identifier
	Type    DataType
	Size    uint32
	Fixed   bool
	NotNull bool
}

// Width returns the number of bytes this column occupies inline within a
// tile row: Size for fixed columns, and a constant 8 bytes (a pool
// offset/length pair) for variable columns.
func (c Column) Width() uint32 {
	if !c.Fixed && c.Type.Variable() {
		return 8
	}
	return c.Size
}

var fixedWidth = map[DataType]uint32{
	BooleanType: 1,
	IntegerType: 8,
	FloatType:   8,
}

// NewFixedColumn builds a Column for a fixed-width scalar type, deriving
// Size from the type itself.
func NewFixedColumn(name Identifier, dt DataType, notNull bool) Column {
	return Column{Name: name, Type: dt, Size: fixedWidth[dt], Fixed: true, NotNull: notNull}
}

// NewVariableColumn builds a Column for a variable-width CharacterType or
// BinaryType column, pool-backed rather than inlined.
func NewVariableColumn(name Identifier, dt DataType, notNull bool) Column {
	return Column{Name: name, Type: dt, Fixed: false, NotNull: notNull}
}
