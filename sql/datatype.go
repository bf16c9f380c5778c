package sql

// DataType identifies the logical type of a column's values.
type DataType int

const (
	BooleanType DataType = iota
	IntegerType
	FloatType
	CharacterType // fixed or variable-length text
	BinaryType    // fixed or variable-length bytes
)

func (dt DataType) String() string {
	switch dt {
	case BooleanType:
		return "BOOLEAN"
	case IntegerType:
		return "INTEGER"
	case FloatType:
		return "FLOAT"
	case CharacterType:
		return "CHARACTER"
	case BinaryType:
		return "BINARY"
	default:
		return "UNKNOWN"
	}
}

// Variable reports whether values of dt can have a variable on-row width:
// true for character and binary types. Such columns are still fixed when
// the column itself is declared fixed-width; that decision lives on the
// Column, not the DataType.
func (dt DataType) Variable() bool {
	return dt == CharacterType || dt == BinaryType
}
