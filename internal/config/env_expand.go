package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// expandEnv substitutes ${VAR} references in the raw YAML before parsing.
// Expansion happens on the node tree rather than the byte stream so quoted
// scalars keep their string type and unquoted scalars can re-type (an env
// var holding "15" stays an integer). Unset variables expand to empty and
// are reported in the second return value.
func expandEnv(raw []byte) (string, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}

	unset := make(map[string]struct{})
	expandTree(&root, unset)

	expanded, err := yaml.Marshal(&root)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}
	return string(expanded), sortedNames(unset), nil
}

func expandTree(node *yaml.Node, unset map[string]struct{}) {
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			expandTree(child, unset)
		}
	case yaml.MappingNode:
		// Values only. Mapping keys are structural and stay literal.
		for i := 0; i+1 < len(node.Content); i += 2 {
			expandTree(node.Content[i+1], unset)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			expandTree(node.Alias, unset)
		}
	case yaml.ScalarNode:
		expandScalarNode(node, unset)
	}
}

func expandScalarNode(node *yaml.Node, unset map[string]struct{}) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}

	expanded := os.Expand(node.Value, func(name string) string {
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		unset[name] = struct{}{}
		return ""
	})
	if expanded == node.Value {
		return
	}

	if node.Style != 0 {
		// Quoted in the source; honor the author's intent to keep a string.
		node.Tag = "!!str"
		node.Value = expanded
		return
	}

	node.Tag, node.Value = retypeScalar(expanded)
}

// retypeScalar picks the YAML tag an unquoted scalar would have carried if
// the expanded text had been written literally.
func retypeScalar(value string) (string, string) {
	if strings.TrimSpace(value) == "" {
		return "!!str", value
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return "!!str", value
	}

	switch v := parsed.(type) {
	case nil:
		return "!!null", "null"
	case bool:
		return "!!bool", strconv.FormatBool(v)
	case int:
		return "!!int", strconv.Itoa(v)
	case int64:
		return "!!int", strconv.FormatInt(v, 10)
	case uint64:
		return "!!int", strconv.FormatUint(v, 10)
	case float64:
		return "!!float", strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "!!str", value
	}
}

func sortedNames(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
