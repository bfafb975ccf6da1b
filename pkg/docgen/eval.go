package docgen

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Data is a render context: names mapped to scalars, records
// (map[string]any), lists and image handles.
type Data map[string]any

// EvaluateBinaryOperation applies a binary operator to two values.
func EvaluateBinaryOperation(left any, operator string, right any) (any, error) {
	switch operator {
	case "+":
		return evaluateAddition(left, right)
	case "-", "*", "/":
		return evaluateArithmetic(left, operator, right)
	case "%":
		leftInt, leftOk := toInt(left)
		rightInt, rightOk := toInt(right)
		if !leftOk || !rightOk {
			return nil, fmt.Errorf("modulo operation requires integers, got %T and %T", left, right)
		}
		if rightInt == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return leftInt % rightInt, nil
	case "==":
		return evaluateEquals(left, right), nil
	case "!=":
		return !evaluateEquals(left, right), nil
	case "<", ">", "<=", ">=":
		return evaluateComparison(left, operator, right)
	case "&":
		return isTruthy(left) && isTruthy(right), nil
	case "|":
		return isTruthy(left) || isTruthy(right), nil
	}
	return nil, fmt.Errorf("unknown binary operator: %s", operator)
}

func evaluateAddition(left, right any) (any, error) {
	if leftStr, ok := left.(string); ok {
		return leftStr + FormatValue(right), nil
	}
	if rightStr, ok := right.(string); ok {
		return FormatValue(left) + rightStr, nil
	}
	return evaluateArithmetic(left, "+", right)
}

func evaluateArithmetic(left any, operator string, right any) (any, error) {
	leftNum, leftOk := toFloat64(left)
	rightNum, rightOk := toFloat64(right)
	if !leftOk || !rightOk {
		return nil, fmt.Errorf("cannot apply %s to %T and %T", operator, left, right)
	}

	var result float64
	switch operator {
	case "+":
		result = leftNum + rightNum
	case "-":
		result = leftNum - rightNum
	case "*":
		result = leftNum * rightNum
	case "/":
		if rightNum == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		result = leftNum / rightNum
		if isInteger(left) && isInteger(right) && result == float64(int(result)) {
			return int(result), nil
		}
		return result, nil
	}
	if isInteger(left) && isInteger(right) {
		return int(result), nil
	}
	return result, nil
}

func evaluateEquals(left, right any) bool {
	if left == nil && right == nil {
		return true
	}
	if left == nil || right == nil {
		return false
	}
	if leftNum, leftOk := toFloat64(left); leftOk {
		if rightNum, rightOk := toFloat64(right); rightOk {
			return leftNum == rightNum
		}
	}
	if reflect.TypeOf(left).Comparable() && reflect.TypeOf(right).Comparable() {
		return left == right
	}
	return reflect.DeepEqual(left, right)
}

func evaluateComparison(left any, operator string, right any) (any, error) {
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			c := strings.Compare(ls, rs)
			switch operator {
			case "<":
				return c < 0, nil
			case ">":
				return c > 0, nil
			case "<=":
				return c <= 0, nil
			}
			return c >= 0, nil
		}
	}
	leftNum, leftOk := toFloat64(left)
	rightNum, rightOk := toFloat64(right)
	if !leftOk || !rightOk {
		return nil, fmt.Errorf("cannot compare %T and %T", left, right)
	}
	switch operator {
	case "<":
		return leftNum < rightNum, nil
	case ">":
		return leftNum > rightNum, nil
	case "<=":
		return leftNum <= rightNum, nil
	}
	return leftNum >= rightNum, nil
}

func toFloat64(val any) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func toInt(val any) (int, bool) {
	f, ok := toFloat64(val)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func isInteger(val any) bool {
	switch val.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isTruthy(val any) bool {
	if val == nil {
		return false
	}
	switch v := val.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case *Image:
		return v != nil
	}
	if f, ok := toFloat64(val); ok {
		return f != 0
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// accessMapField reads a key of a map or an exported field of a struct.
func accessMapField(current any, field string) any {
	switch v := current.(type) {
	case nil:
		return nil
	case Data:
		return v[field]
	case map[string]any:
		return v[field]
	case map[string]string:
		return v[field]
	}

	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		val := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil
		}
		return val.Interface()
	case reflect.Struct:
		f := rv.FieldByName(field)
		if !f.IsValid() || !f.CanInterface() {
			return nil
		}
		return f.Interface()
	}
	return nil
}

// accessArrayIndex reads an element of a slice; negative indexes count from the end.
func accessArrayIndex(current any, index int) any {
	if current == nil {
		return nil
	}
	rv := reflect.ValueOf(current)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	if index < 0 {
		index = rv.Len() + index
	}
	if index < 0 || index >= rv.Len() {
		return nil
	}
	return rv.Index(index).Interface()
}

// toSlice converts an iterable value to []any. Maps iterate as key/value
// records in key order.
func toSlice(val any) ([]any, error) {
	switch v := val.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case string:
		out := make([]any, 0, len(v))
		for _, r := range v {
			out = append(out, string(r))
		}
		return out, nil
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	case reflect.Map:
		keys := rv.MapKeys()
		names := make([]string, len(keys))
		byName := make(map[string]reflect.Value, len(keys))
		for i, k := range keys {
			names[i] = fmt.Sprint(k.Interface())
			byName[names[i]] = k
		}
		slices.Sort(names)
		out := make([]any, len(names))
		for i, name := range names {
			out[i] = map[string]any{"key": name, "value": rv.MapIndex(byName[name]).Interface()}
		}
		return out, nil
	}
	return nil, fmt.Errorf("type %T is not iterable", val)
}

// FormatValue converts a value to the text written into the document.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', 15, 64)
	case *Image:
		return ""
	case fmt.Stringer:
		return v.String()
	}
	if isInteger(value) {
		return fmt.Sprintf("%d", value)
	}
	return fmt.Sprintf("%v", value)
}
