package gvdb

import (
	"fmt"
	"strings"

	"github.com/dconf/gvdb/internal/codec"
)

// Resolve walks a slash-delimited path from tree's root. A directory
// path both starts and ends with '/' (including the
// lone "/" for the root) and must resolve to a Table; a key path
// starts with '/' but does not end with it, and must resolve to a
// Variant or List. The returned node is borrowed from tree: it is not
// ref-incremented and must not be Unref'd by the caller.
func Resolve(tree *Tree, path string, isDir bool) (*Node, error) {
	if path == "" {
		return nil, newErr(PathSyntax, "path must not be empty", nil)
	}
	if path[0] != '/' {
		return nil, newErr(PathSyntax, "path must start with '/'", nil)
	}
	if path == "/" {
		if !isDir {
			return nil, newErr(PathSyntax, "key path must not end with '/'", nil)
		}
		return tree.Root, nil
	}

	segments := strings.Split(path[1:], "/")
	if isDir {
		if segments[len(segments)-1] != "" {
			return nil, newErr(PathSyntax, "directory path must end with '/'", nil)
		}
		segments = segments[:len(segments)-1]
	} else if segments[len(segments)-1] == "" {
		return nil, newErr(PathSyntax, "key path must not end with '/'", nil)
	}
	if len(segments) == 0 {
		return nil, newErr(PathSyntax, "path has no segments", nil)
	}

	current := tree.Root
	for i, seg := range segments {
		if seg == "" {
			return nil, newErr(PathSyntax, "path contains an empty segment", nil)
		}
		if current.Tag() != codec.TagTable {
			return nil, newErr(NotFound, fmt.Sprintf("%q is not inside a table", seg), nil)
		}
		child, found := tableLookup(current, seg)
		if !found {
			return nil, newErr(NotFound, fmt.Sprintf("no such key: %q", seg), nil)
		}

		last := i == len(segments)-1
		if last {
			if isDir && child.Tag() != codec.TagTable {
				return nil, newErr(NotFound, "path does not resolve to a table", nil)
			}
			if !isDir && child.Tag() != codec.TagVariant && child.Tag() != codec.TagList {
				return nil, newErr(NotFound, "path does not resolve to a value", nil)
			}
		}
		current = child
	}
	return current, nil
}

// Dump resolves dirPath and renders every descendant as an INI-like
// stream: one bracketed section per table, variants and lists as
// `key=value` lines, subtables recursing into further sections
// separated by a blank line. Table entries are rendered in sorted key
// order.
func Dump(tree *Tree, dirPath string) (string, error) {
	node, err := Resolve(tree, dirPath, true)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	dumpTable(&b, node, dirPath)
	return b.String(), nil
}

func dumpTable(b *strings.Builder, table *Node, path string) {
	fmt.Fprintf(b, "[%s]\n", path)

	var subtables []string
	for _, key := range sortedTableKeys(table) {
		child := table.table[key]
		switch child.Tag() {
		case codec.TagVariant:
			v, _ := GetVariant(child)
			fmt.Fprintf(b, "%s=%s\n", key, v.Print())
		case codec.TagList:
			fmt.Fprintf(b, "%s=%s\n", key, quoteListForDump(child))
		case codec.TagTable:
			subtables = append(subtables, key)
		}
	}

	for _, key := range subtables {
		b.WriteString("\n")
		dumpTable(b, table.table[key], path+key+"/")
	}
}

// quoteListForDump renders a list value for an INI line: the whole
// rendering is wrapped in single quotes. renderValue already converts
// string delimiters inside a list to double quotes, so the outer
// single-quoting stays unambiguous.
func quoteListForDump(node *Node) string {
	return "'" + renderValue(node) + "'"
}

// List resolves dirPath and lists its immediate children: table
// children get a trailing '/', leaf children don't. Entries are
// newline joined, in sorted key order.
func List(tree *Tree, dirPath string) (string, error) {
	node, err := Resolve(tree, dirPath, true)
	if err != nil {
		return "", err
	}
	keys := sortedTableKeys(node)
	lines := make([]string, len(keys))
	for i, key := range keys {
		if node.table[key].Tag() == codec.TagTable {
			lines[i] = key + "/"
		} else {
			lines[i] = key
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Read resolves keyPath (a non-directory path) and renders its value:
// a variant prints via the variant library's single-line Print; a
// list prints as `{"k": v, ...}` with each v rendered recursively.
func Read(tree *Tree, keyPath string) (string, error) {
	node, err := Resolve(tree, keyPath, false)
	if err != nil {
		return "", err
	}
	return renderValue(node), nil
}

func renderValue(node *Node) string {
	switch node.Tag() {
	case codec.TagVariant:
		v, _ := GetVariant(node)
		return v.Print()
	case codec.TagList:
		elems, _ := ListGet(node)
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = fmt.Sprintf("%q: %s", e.Key, renderListElement(e.Item))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

// renderListElement renders a value nested inside a list: single
// quotes from the variant printer become double quotes, so the list
// reads as one JSON-ish line and survives being wrapped in outer
// single quotes on an INI dump line.
func renderListElement(node *Node) string {
	return strings.ReplaceAll(renderValue(node), "'", "\"")
}
