package exec

import (
	"strconv"
	"time"

	"yachtsql/internal/errs"
	"yachtsql/internal/functions"
	"yachtsql/internal/types"
)

// Cast converts v to the type named by typeName/args, implementing
// CAST(expr AS type) and PostgreSQL's `::type` shorthand (spec.md §4.1).
// Unsupported conversions surface as TypeMismatch rather than silently
// producing NULL, the way an evaluator boundary should fail closed.
func Cast(v types.Value, typeName string, args []int) (types.Value, error) {
	target, err := functions.TypeNameToDataType(typeName, args)
	if err != nil {
		return types.Value{}, err
	}
	if v.IsNull {
		return types.NullValue(target), nil
	}
	if v.Type.Equal(target) {
		return v, nil
	}

	switch target.Tag {
	case types.Int64:
		switch v.Type.Tag {
		case types.Float64:
			return types.Int64Value(int64(v.Float64())), nil
		case types.DecimalTag:
			i, err := strconv.ParseInt(v.Decimal().String(), 10, 64)
			if err != nil {
				return types.Value{}, errs.Wrap(errs.TypeMismatch, err, "cannot cast %s to INT64", v.Decimal().String())
			}
			return types.Int64Value(i), nil
		case types.String:
			i, err := strconv.ParseInt(v.Str(), 10, 64)
			if err != nil {
				return types.Value{}, errs.Wrap(errs.TypeMismatch, err, "cannot cast %q to INT64", v.Str())
			}
			return types.Int64Value(i), nil
		case types.Bool:
			if v.Bool() {
				return types.Int64Value(1), nil
			}
			return types.Int64Value(0), nil
		}
	case types.Float64:
		switch v.Type.Tag {
		case types.Int64:
			return types.Float64Value(float64(v.Int64())), nil
		case types.DecimalTag:
			f, err := strconv.ParseFloat(v.Decimal().String(), 64)
			if err != nil {
				return types.Value{}, errs.Wrap(errs.TypeMismatch, err, "cannot cast %s to FLOAT64", v.Decimal().String())
			}
			return types.Float64Value(f), nil
		case types.String:
			f, err := strconv.ParseFloat(v.Str(), 64)
			if err != nil {
				return types.Value{}, errs.Wrap(errs.TypeMismatch, err, "cannot cast %q to FLOAT64", v.Str())
			}
			return types.Float64Value(f), nil
		}
	case types.DecimalTag:
		switch v.Type.Tag {
		case types.Int64:
			return types.DecimalValue(types.DecimalFromInt64(v.Int64(), target.Precision, target.Scale)), nil
		case types.Float64, types.String:
			d, err := types.NewDecimal(v.String(), target.Precision, target.Scale)
			if err != nil {
				return types.Value{}, err
			}
			return types.DecimalValue(d), nil
		}
	case types.String:
		return types.StringValue(v.String()), nil
	case types.Bool:
		if v.Type.Tag == types.String {
			switch v.Str() {
			case "true", "t", "TRUE", "1":
				return types.BoolValue(true), nil
			case "false", "f", "FALSE", "0":
				return types.BoolValue(false), nil
			default:
				return types.Value{}, errs.New(errs.TypeMismatch, "cannot cast %q to BOOL", v.Str())
			}
		}
	case types.Date, types.Timestamp, types.TimestampTZ:
		if v.Type.Tag == types.String {
			layout := time.RFC3339
			if target.Tag == types.Date {
				layout = "2006-01-02"
			}
			t, err := time.Parse(layout, v.Str())
			if err != nil {
				return types.Value{}, errs.Wrap(errs.TypeMismatch, err, "cannot cast %q to %s", v.Str(), target)
			}
			tv := types.TimestampValue(t)
			tv.Type = target
			return tv, nil
		}
		if v.Type.Tag == types.Date || v.Type.Tag == types.Timestamp || v.Type.Tag == types.TimestampTZ {
			tv := types.TimestampValue(v.Time())
			tv.Type = target
			return tv, nil
		}
	case types.JSON:
		return types.NewJSONValue(jsonDoc(v)), nil
	}
	return types.Value{}, errs.New(errs.TypeMismatch, "cannot cast %s to %s", v.Type, target)
}

// jsonDoc renders v as a plain Go value suitable as a JSONValue.Doc,
// matching encoding/json's native decode shapes.
func jsonDoc(v types.Value) any {
	switch v.Type.Tag {
	case types.Bool:
		return v.Bool()
	case types.Int64:
		return float64(v.Int64())
	case types.Float64:
		return v.Float64()
	case types.String:
		return v.Str()
	case types.Array:
		out := make([]any, 0, len(v.Array()))
		for _, e := range v.Array() {
			if e.IsNull {
				out = append(out, nil)
				continue
			}
			out = append(out, jsonDoc(e))
		}
		return out
	case types.Struct:
		out := map[string]any{}
		for i, f := range v.Struct().Fields {
			name := v.Type.Fields[i].Name
			if f.IsNull {
				out[name] = nil
				continue
			}
			out[name] = jsonDoc(f)
		}
		return out
	default:
		return v.String()
	}
}
