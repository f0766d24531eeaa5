package dom

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/yklcs/areum/internal/errors"
)

// Props maps attribute names to a small value union: bool, float64, string,
// []any, or map[string]any. Key order is irrelevant; serialization sorts
// keys for deterministic output.
type Props map[string]any

// Clone returns a shallow copy of the props map.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// AppendString appends val to the string prop key, space-separated. If the
// key is absent it is set to val. A present non-string value yields a
// PropTypeError.
func (p Props) AppendString(key, val string) error {
	existing, ok := p[key]
	if !ok {
		p[key] = val
		return nil
	}
	str, ok := existing.(string)
	if !ok {
		return &errors.PropTypeError{Key: key, Value: existing, Op: "append string to"}
	}
	p[key] = str + " " + val
	return nil
}

// writeAttrs writes the props as HTML attributes, preceded by a single
// space when non-empty. Boolean true renders as a bare attribute name,
// boolean false is omitted, numbers and strings render as key="value", and
// arrays and objects render a placeholder marker.
func (p Props) writeAttrs(sb *strings.Builder) {
	if len(p) == 0 {
		return
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := p[k].(type) {
		case bool:
			if v {
				sb.WriteByte(' ')
				sb.WriteString(k)
			}
		case float64:
			sb.WriteByte(' ')
			sb.WriteString(k)
			sb.WriteString(`="`)
			sb.WriteString(formatNumber(v))
			sb.WriteByte('"')
		case int:
			sb.WriteByte(' ')
			sb.WriteString(k)
			sb.WriteString(`="`)
			sb.WriteString(strconv.Itoa(v))
			sb.WriteByte('"')
		case string:
			sb.WriteByte(' ')
			sb.WriteString(k)
			sb.WriteString(`="`)
			sb.WriteString(html.EscapeString(v))
			sb.WriteByte('"')
		case []any:
			sb.WriteByte(' ')
			sb.WriteString(k)
			sb.WriteString(`="[Array]"`)
		case map[string]any:
			sb.WriteByte(' ')
			sb.WriteString(k)
			sb.WriteString(`="[Object]"`)
		default:
			// Unknown prop kinds get the generic placeholder.
			sb.WriteByte(' ')
			sb.WriteString(k)
			sb.WriteString(fmt.Sprintf(`="[%T]"`, v))
		}
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
