package qdrant

import (
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

func toValues(fields map[string]any) (map[string]*pb.Value, error) {
	out := make(map[string]*pb.Value, len(fields))
	for k, v := range fields {
		value, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", vectorindex.ErrInvalidPayload, k, err)
		}
		out[k] = value
	}
	return out, nil
}

func toValue(v any) (*pb.Value, error) {
	switch x := v.(type) {
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{}}, nil
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: x}}, nil
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: x}}, nil
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(x)}}, nil
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: x}}, nil
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: x}}, nil
	case []string:
		list := make([]*pb.Value, 0, len(x))
		for _, s := range x {
			list = append(list, &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}})
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: list}}}, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func fromValues(values map[string]*pb.Value) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = fromValue(v)
	}
	return out
}

func fromValue(v *pb.Value) any {
	switch x := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return x.StringValue
	case *pb.Value_IntegerValue:
		return x.IntegerValue
	case *pb.Value_DoubleValue:
		return x.DoubleValue
	case *pb.Value_BoolValue:
		return x.BoolValue
	case *pb.Value_ListValue:
		list := make([]any, 0, len(x.ListValue.GetValues()))
		for _, item := range x.ListValue.GetValues() {
			list = append(list, fromValue(item))
		}
		return list
	case *pb.Value_StructValue:
		return fromValues(x.StructValue.GetFields())
	default:
		return nil
	}
}

// toFilter converts conditions to a Qdrant filter. The filter is assumed
// to be validated against the collection schema.
func toFilter(f vectorindex.Filter) *pb.Filter {
	if f.Empty() {
		return nil
	}
	must := make([]*pb.Condition, 0, len(f.Must))
	for _, c := range f.Must {
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{Field: toFieldCondition(c)},
		})
	}
	return &pb.Filter{Must: must}
}

func toFieldCondition(c vectorindex.Condition) *pb.FieldCondition {
	fc := &pb.FieldCondition{Key: c.Field}
	if c.Op == vectorindex.OpEq {
		if s, ok := c.Value.(string); ok {
			fc.Match = &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: s}}
			return fc
		}
		n, _ := vectorindex.Number(c.Value)
		fc.Match = &pb.Match{MatchValue: &pb.Match_Integer{Integer: int64(n)}}
		return fc
	}

	n, _ := vectorindex.Number(c.Value)
	r := &pb.Range{}
	switch c.Op {
	case vectorindex.OpGte:
		r.Gte = &n
	case vectorindex.OpLte:
		r.Lte = &n
	case vectorindex.OpGt:
		r.Gt = &n
	case vectorindex.OpLt:
		r.Lt = &n
	}
	fc.Range = r
	return fc
}
