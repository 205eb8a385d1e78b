package entities

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/x/bsonx/bsoncore"
)

// Number is an exact decimal that is stored as a BSON double and encoded as a
// bare JSON number
type Number struct {
	decimal.Decimal
}

func NewNumber(value string) Number {
	return Number{decimal.RequireFromString(value)}
}

func NumberFromFloat(value float64) Number {
	return Number{decimal.NewFromFloat(value)}
}

func NumberPtr(value string) *Number {
	n := NewNumber(value)
	return &n
}

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n Number) MarshalBSONValue() (byte, []byte, error) {
	f, _ := n.Float64()
	return byte(bson.TypeDouble), bsoncore.AppendDouble(nil, f), nil
}

func (n *Number) UnmarshalBSONValue(typ byte, data []byte) error {
	raw := bson.RawValue{Type: bson.Type(typ), Value: data}
	switch raw.Type {
	case bson.TypeDouble:
		n.Decimal = decimal.NewFromFloat(raw.Double())
	case bson.TypeInt32:
		n.Decimal = decimal.NewFromInt32(raw.Int32())
	case bson.TypeInt64:
		n.Decimal = decimal.NewFromInt(raw.Int64())
	case bson.TypeDecimal128:
		d, err := decimal.NewFromString(raw.Decimal128().String())
		if err != nil {
			return err
		}
		n.Decimal = d
	case bson.TypeString:
		d, err := decimal.NewFromString(raw.StringValue())
		if err != nil {
			return err
		}
		n.Decimal = d
	case bson.TypeNull, bson.TypeUndefined:
		n.Decimal = decimal.Zero
	default:
		return fmt.Errorf("cannot decode %s into a number", strconv.Quote(raw.Type.String()))
	}
	return nil
}
