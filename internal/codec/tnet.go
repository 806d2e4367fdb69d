package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Tnetstrings: SIZE ":" DATA TYPE, where TYPE is one of
//
//	,  string    #  integer   ^  float
//	!  boolean   ~  null      }  dictionary   ]  list
//
// Dictionaries are written with sorted keys so the encoding is deterministic.

var errTnetSyntax = errors.New("malformed tnetstring")

func encodeTnet(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTnet(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTnetAtom(buf *bytes.Buffer, payload []byte, tag byte) {
	buf.WriteString(strconv.Itoa(len(payload)))
	buf.WriteByte(':')
	buf.Write(payload)
	buf.WriteByte(tag)
}

func writeTnet(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		writeTnetAtom(buf, nil, '~')
	case string:
		writeTnetAtom(buf, []byte(x), ',')
	case []byte:
		writeTnetAtom(buf, x, ',')
	case bool:
		writeTnetAtom(buf, []byte(strconv.FormatBool(x)), '!')
	case int:
		writeTnetAtom(buf, strconv.AppendInt(nil, int64(x), 10), '#')
	case int32:
		writeTnetAtom(buf, strconv.AppendInt(nil, int64(x), 10), '#')
	case int64:
		writeTnetAtom(buf, strconv.AppendInt(nil, x, 10), '#')
	case uint64:
		if x > math.MaxInt64 {
			return fmt.Errorf("%w: integer %d overflows", ErrUnsupportedType, x)
		}
		writeTnetAtom(buf, strconv.AppendUint(nil, x, 10), '#')
	case float64:
		writeTnetAtom(buf, strconv.AppendFloat(nil, x, 'g', -1, 64), '^')
	case map[string]any:
		return writeTnetDict(buf, x)
	case map[string]string:
		m := make(map[string]any, len(x))
		for k, s := range x {
			m[k] = s
		}
		return writeTnetDict(buf, m)
	case []any:
		var body bytes.Buffer
		for _, item := range x {
			if err := writeTnet(&body, item); err != nil {
				return err
			}
		}
		writeTnetAtom(buf, body.Bytes(), ']')
	case []string:
		var body bytes.Buffer
		for _, item := range x {
			writeTnetAtom(&body, []byte(item), ',')
		}
		writeTnetAtom(buf, body.Bytes(), ']')
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	return nil
}

func writeTnetDict(buf *bytes.Buffer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var body bytes.Buffer
	for _, k := range keys {
		writeTnetAtom(&body, []byte(k), ',')
		if err := writeTnet(&body, m[k]); err != nil {
			return err
		}
	}
	writeTnetAtom(buf, body.Bytes(), '}')
	return nil
}

func decodeTnet(data []byte) (any, error) {
	v, rest, err := readTnet(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errTnetSyntax, len(rest))
	}
	return v, nil
}

// readTnet parses one element and returns whatever follows it.
func readTnet(data []byte) (any, []byte, error) {
	colon := bytes.IndexByte(data, ':')
	if colon <= 0 || colon > 9 {
		return nil, nil, fmt.Errorf("%w: missing length prefix", errTnetSyntax)
	}
	size, err := strconv.Atoi(string(data[:colon]))
	if err != nil || size < 0 {
		return nil, nil, fmt.Errorf("%w: bad length %q", errTnetSyntax, data[:colon])
	}
	end := colon + 1 + size
	if end >= len(data) {
		return nil, nil, fmt.Errorf("%w: truncated", errTnetSyntax)
	}
	payload, tag, rest := data[colon+1:end], data[end], data[end+1:]

	switch tag {
	case ',':
		return string(payload), rest, nil
	case '#':
		n, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", errTnetSyntax, err)
		}
		return n, rest, nil
	case '^':
		f, err := strconv.ParseFloat(string(payload), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", errTnetSyntax, err)
		}
		return f, rest, nil
	case '!':
		switch string(payload) {
		case "true":
			return true, rest, nil
		case "false":
			return false, rest, nil
		}
		return nil, nil, fmt.Errorf("%w: bad boolean %q", errTnetSyntax, payload)
	case '~':
		if size != 0 {
			return nil, nil, fmt.Errorf("%w: null with payload", errTnetSyntax)
		}
		return nil, rest, nil
	case ']':
		list := []any{}
		for len(payload) > 0 {
			var item any
			if item, payload, err = readTnet(payload); err != nil {
				return nil, nil, err
			}
			list = append(list, item)
		}
		return list, rest, nil
	case '}':
		dict := map[string]any{}
		for len(payload) > 0 {
			var k, item any
			if k, payload, err = readTnet(payload); err != nil {
				return nil, nil, err
			}
			name, ok := k.(string)
			if !ok {
				return nil, nil, fmt.Errorf("%w: dictionary key is %T", errTnetSyntax, k)
			}
			if len(payload) == 0 {
				return nil, nil, fmt.Errorf("%w: dictionary key %q has no value", errTnetSyntax, name)
			}
			if item, payload, err = readTnet(payload); err != nil {
				return nil, nil, err
			}
			dict[name] = item
		}
		return dict, rest, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown type tag %q", errTnetSyntax, tag)
}
