package policy

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/yourusername/netreconcile/internal/models"
)

// LoadFile reads an HCL policy file. Entity blocks override the default
// lists they set; anything not mentioned keeps its default.
//
//	exclusive = true
//
//	entity "interface" {
//	  auto_correct     = ["mtu", "description"]
//	  require_approval = ["enabled", "mode"]
//	  severity         = { enabled = "CRITICAL" }
//	}
func LoadFile(path string) (*Policy, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return Parse(src, path)
}

// Parse decodes HCL policy source
func Parse(src []byte, filename string) (*Policy, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse policy: %s", diags.Error())
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("unexpected policy body type %T", file.Body)
	}

	p := Default()
	for name, attr := range body.Attributes {
		switch name {
		case "exclusive":
			val, err := evalAttr(attr)
			if err != nil {
				return nil, err
			}
			if val.Type() != cty.Bool {
				return nil, fmt.Errorf("%s: exclusive must be a bool", attr.SrcRange)
			}
			p.Exclusive = val.True()
		default:
			return nil, fmt.Errorf("%s: unknown attribute %q", attr.SrcRange, name)
		}
	}

	for _, block := range body.Blocks {
		if block.Type != "entity" || len(block.Labels) != 1 {
			return nil, fmt.Errorf("%s: expected entity \"<type>\" block", block.DefRange())
		}
		et, err := models.ParseEntityType(block.Labels[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", block.DefRange(), err)
		}
		if err := applyEntityBlock(p, et, block.Body); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func applyEntityBlock(p *Policy, et models.EntityType, body *hclsyntax.Body) error {
	for name, attr := range body.Attributes {
		val, err := evalAttr(attr)
		if err != nil {
			return err
		}
		switch name {
		case "auto_correct":
			fields, err := stringList(val)
			if err != nil {
				return fmt.Errorf("%s: %w", attr.SrcRange, err)
			}
			p.autoCorrect[et] = toSet(fields)
		case "require_approval":
			fields, err := stringList(val)
			if err != nil {
				return fmt.Errorf("%s: %w", attr.SrcRange, err)
			}
			p.approval[et] = toSet(fields)
		case "severity":
			if !val.Type().IsObjectType() && !val.Type().IsMapType() {
				return fmt.Errorf("%s: severity must be an object", attr.SrcRange)
			}
			if p.severity[et] == nil {
				p.severity[et] = map[string]models.DiffSeverity{}
			}
			for it := val.ElementIterator(); it.Next(); {
				k, v := it.Element()
				if v.Type() != cty.String {
					return fmt.Errorf("%s: severity for %s must be a string", attr.SrcRange, k.AsString())
				}
				sev, err := models.ParseSeverity(v.AsString())
				if err != nil {
					return fmt.Errorf("%s: %w", attr.SrcRange, err)
				}
				p.severity[et][k.AsString()] = sev
			}
		default:
			return fmt.Errorf("%s: unknown attribute %q", attr.SrcRange, name)
		}
	}
	return nil
}

func evalAttr(attr *hclsyntax.Attribute) (cty.Value, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("failed to evaluate %s: %s", attr.Name, diags.Error())
	}
	return val, nil
}

func stringList(val cty.Value) ([]string, error) {
	t := val.Type()
	if !t.IsTupleType() && !t.IsListType() && !t.IsSetType() {
		return nil, fmt.Errorf("expected a list of field names")
	}
	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if v.Type() != cty.String {
			return nil, fmt.Errorf("field names must be strings")
		}
		out = append(out, v.AsString())
	}
	return out, nil
}

func toSet(fields []string) fieldSet {
	s := make(fieldSet, len(fields))
	for _, f := range fields {
		s[f] = true
	}
	return s
}
