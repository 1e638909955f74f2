package metadata

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/metapath/metapath/internal/pathnorm"
	"gopkg.in/yaml.v3"
)

// SelfKey is the listing key under which a contains file stores the
// metadata of its own directory.
const SelfKey = "."

// maxDepth bounds how deep mappings, sequences and aliases may nest.
const maxDepth = 64

// YAMLReader parses YAML meta files.
//
// A contains file is a single mapping of fields. A siblings file is a
// mapping from relative path to a mapping of fields; every path is
// normalized and must stay below the meta file's directory. Merge keys
// ("<<") are expanded, with explicit keys taking precedence. A file holds
// at most one document.
type YAMLReader struct{}

func (YAMLReader) FromString(text string, target Target) (Listing, error) {
	root, err := decodeDocument(text)
	if err != nil {
		return nil, err
	}

	switch target {
	case TargetContains:
		if root == nil {
			return Listing{SelfKey: Metadata{}}, nil
		}
		meta, err := decodeMetadata(root)
		if err != nil {
			return nil, err
		}
		return Listing{SelfKey: meta}, nil
	case TargetSiblings:
		if root == nil {
			return Listing{}, nil
		}
		return decodeSiblings(root)
	default:
		return nil, fmt.Errorf("unknown meta target %q", target)
	}
}

// decodeDocument returns the root node of the only document in text, or
// nil when text holds no content.
func decodeDocument(text string) (*yaml.Node, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &ParseError{Err: err}
	}

	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, &ParseError{Err: err}
	default:
		if next := documentRoot(&extra); next != nil {
			return nil, parseErrorf(next, "multiple documents in one meta file")
		}
	}
	return documentRoot(&doc), nil
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := resolveAlias(doc.Content[0])
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil
	}
	return root
}

func decodeSiblings(node *yaml.Node) (Listing, error) {
	if node.Kind != yaml.MappingNode {
		return nil, parseErrorf(node, "expected a mapping of paths, got %s", kindName(node))
	}

	entries, err := mappingEntries(node, 0)
	if err != nil {
		return nil, err
	}

	listing := make(Listing, len(entries))
	spelled := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.key.Kind != yaml.ScalarNode {
			return nil, parseErrorf(e.key, "path keys must be scalars, got %s", kindName(e.key))
		}

		raw := e.key.Value
		if pathnorm.Escapes(raw, pathnorm.Unix) {
			return nil, parseErrorf(e.key, "path %q escapes the meta file's directory", raw)
		}
		path := pathnorm.NormalizeStyle(raw, pathnorm.Unix)
		if path == SelfKey {
			return nil, parseErrorf(e.key, "path %q refers to the meta file's own directory", raw)
		}
		if first, dup := spelled[path]; dup {
			if e.merged {
				continue
			}
			return nil, parseErrorf(e.key, "path %q duplicates %q (both normalize to %q)", raw, first, path)
		}
		spelled[path] = raw

		meta, err := decodeMetadata(e.value)
		if err != nil {
			return nil, err
		}
		listing[path] = meta
	}
	return listing, nil
}

func decodeMetadata(node *yaml.Node) (Metadata, error) {
	node = resolveAlias(node)
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return Metadata{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, parseErrorf(node, "expected a mapping of fields, got %s", kindName(node))
	}

	fields, err := decodeFields(node, 0)
	if err != nil {
		return nil, err
	}
	return Metadata(fields), nil
}

func decodeFields(node *yaml.Node, depth int) (map[string]Value, error) {
	entries, err := mappingEntries(node, depth)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]Value, len(entries))
	for _, e := range entries {
		if e.key.Kind != yaml.ScalarNode {
			return nil, parseErrorf(e.key, "field names must be scalars, got %s", kindName(e.key))
		}
		if _, dup := fields[e.key.Value]; dup {
			if e.merged {
				continue
			}
			return nil, parseErrorf(e.key, "field %q is duplicated", e.key.Value)
		}
		value, err := decodeValue(e.value, depth+1)
		if err != nil {
			return nil, err
		}
		fields[e.key.Value] = value
	}
	return fields, nil
}

func decodeValue(node *yaml.Node, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, parseErrorf(node, "values nest deeper than %d levels", maxDepth)
	}
	node = resolveAlias(node)

	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return Null(), nil
		}
		return String(node.Value), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := decodeValue(child, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Sequence(items...), nil
	case yaml.MappingNode:
		fields, err := decodeFields(node, depth)
		if err != nil {
			return Value{}, err
		}
		return Mapping(fields), nil
	default:
		return Value{}, parseErrorf(node, "unsupported %s value", kindName(node))
	}
}

type mappingEntry struct {
	key    *yaml.Node
	value  *yaml.Node
	merged bool
}

// mappingEntries lists the pairs of a mapping node with merge keys
// expanded. Explicit pairs come first, followed by merged pairs in the
// order they take precedence, so the first occurrence of a key wins.
func mappingEntries(node *yaml.Node, depth int) ([]mappingEntry, error) {
	if depth > maxDepth {
		return nil, parseErrorf(node, "mappings nest deeper than %d levels", maxDepth)
	}

	entries := make([]mappingEntry, 0, len(node.Content)/2)
	var merge *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := resolveAlias(node.Content[i])
		if !isMergeKey(key) {
			entries = append(entries, mappingEntry{key: key, value: node.Content[i+1]})
			continue
		}
		if merge != nil {
			return nil, parseErrorf(key, "merge key is duplicated")
		}
		merge = resolveAlias(node.Content[i+1])
	}
	if merge == nil {
		return entries, nil
	}

	var sources []*yaml.Node
	switch merge.Kind {
	case yaml.MappingNode:
		sources = []*yaml.Node{merge}
	case yaml.SequenceNode:
		for _, item := range merge.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.MappingNode {
				return nil, parseErrorf(item, "merge sequence items must be mappings, got %s", kindName(item))
			}
			sources = append(sources, item)
		}
	default:
		return nil, parseErrorf(merge, "merge value must be a mapping or a sequence of mappings, got %s", kindName(merge))
	}

	for _, src := range sources {
		inherited, err := mappingEntries(src, depth+1)
		if err != nil {
			return nil, err
		}
		for _, e := range inherited {
			e.merged = true
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func isMergeKey(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Value == "<<" && node.ShortTag() == "!!merge"
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}

func parseErrorf(node *yaml.Node, format string, args ...any) *ParseError {
	return &ParseError{Line: node.Line, Err: fmt.Errorf(format, args...)}
}
