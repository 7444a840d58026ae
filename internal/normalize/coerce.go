package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/yourusername/netreconcile/internal/models"
)

// Kind is the canonical type a field is coerced to before comparison
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindMAC
)

var fieldKinds = map[models.EntityType]map[string]Kind{
	models.EntityInterface: {
		"enabled":     KindBool,
		"mtu":         KindInt,
		"description": KindString,
		"mac_address": KindMAC,
		"mode":        KindString,
		"lag":         KindString,
		"state":       KindString,
	},
	models.EntityDevice: {
		"software_version": KindString,
		"serial":           KindString,
		"model":            KindString,
		"vendor":           KindString,
	},
	models.EntityIPAddress: {
		"interface": KindString,
		"vrf":       KindString,
	},
}

// Fields returns the canonical field names for an entity type
func Fields(et models.EntityType) []string {
	kinds := fieldKinds[et]
	out := make([]string, 0, len(kinds))
	for name := range kinds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Coerce converts raw to the canonical kind of the named field. The second
// return is false when the value is nil or cannot be represented, in which
// case the field must be left out of the entity.
func Coerce(et models.EntityType, field string, raw any) (any, bool) {
	kind, ok := fieldKinds[et][field]
	if !ok || raw == nil {
		return nil, false
	}
	switch kind {
	case KindInt:
		return toInt(raw)
	case KindBool:
		return toBool(raw)
	case KindMAC:
		s, ok := toString(raw)
		if !ok || s == "" {
			return nil, false
		}
		return canonicalMAC(s), true
	default:
		s, ok := toString(raw)
		if !ok {
			return nil, false
		}
		return s, true
	}
}

func set(e *models.Entity, et models.EntityType, field string, raw any) {
	if v, ok := Coerce(et, field, raw); ok {
		e.Fields[field] = v
	}
}

func toInt(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return nil, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil, false
		}
		return i, true
	default:
		return nil, false
	}
}

func toBool(v any) (any, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "up", "enabled", "enable", "yes", "1":
			return true, true
		case "false", "down", "disabled", "disable", "no", "0":
			return false, true
		}
		return nil, false
	case int:
		return b != 0, true
	case float64:
		return b != 0, true
	default:
		return nil, false
	}
}

// toString trims surrounding whitespace, which CLI scrapes routinely pad
// values with. Floats are rendered without exponent notation.
func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int, int64, bool, json.Number:
		return fmt.Sprint(s), true
	default:
		return "", false
	}
}

// canonicalMAC lowercases a MAC address and rewrites any of the common
// notations (aabb.ccdd.eeff, AA-BB-..., AA:BB:...) as colon separated octets.
func canonicalMAC(s string) string {
	hex := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.':
			return -1
		}
		return r
	}, strings.ToLower(s))
	if len(hex) != 12 {
		return strings.ToLower(s)
	}
	var b strings.Builder
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(hex[i : i+2])
	}
	return b.String()
}
