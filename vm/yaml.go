package vm

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ToYAML renders a value as a YAML document. Map key order is kept.
func ToYAML(p *Process, v Value) ([]byte, error) {
	node, err := yamlNode(p, v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

func yamlScalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlNode(p *Process, v Value) (*yaml.Node, error) {
	switch x := OrNull(v).(type) {
	case nullValue:
		return yamlScalar("!!null", "null"), nil
	case Bool:
		return yamlScalar("!!bool", x.String()), nil
	case Int:
		return yamlScalar("!!int", x.String()), nil
	case Float:
		return yamlScalar("!!float", strconv.FormatFloat(float64(x), 'g', -1, 64)), nil
	case String:
		return yamlScalar("!!str", string(x)), nil
	case *List:
		return yamlSequence(p, x.items)
	case *Set:
		return yamlSequence(p, x.Elements())
	case *Map:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range x.keys {
			val, err := yamlNode(p, x.entries[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, yamlScalar("!!str", Display(x.orig[k])), val)
		}
		return n, nil
	default:
		if x.Kind() == KindComposed {
			data, err := ToJSON(p, x)
			if err != nil {
				return nil, err
			}
			parsed, err := FromJSON(data)
			if err != nil {
				return nil, err
			}
			return yamlNode(p, parsed)
		}
		return yamlScalar("!!str", x.String()), nil
	}
}

func yamlSequence(p *Process, items []Value) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, item := range items {
		child, err := yamlNode(p, item)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, child)
	}
	return n, nil
}

// FromYAML parses a YAML document into script values. Mappings become
// ordered maps.
func FromYAML(data []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return Null, nil
	}
	return fromYAMLNode(&doc)
}

func fromYAMLNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null, nil
		}
		return fromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		l := NewList()
		for _, c := range n.Content {
			v, err := fromYAMLNode(c)
			if err != nil {
				return nil, err
			}
			l.Append(v)
		}
		return l, nil
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := fromYAMLNode(n.Content[i])
			if err != nil {
				return nil, err
			}
			v, err := fromYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Put(k, v)
		}
		return m, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return Null, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return Bool(b), nil
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return nil, err
			}
			return Int(i), nil
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return nil, err
			}
			return Float(f), nil
		}
		return String(n.Value), nil
	}
	return nil, fmt.Errorf("unsupported YAML node at line %d", n.Line)
}
