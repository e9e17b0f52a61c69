package pose

import "strings"

// NamespaceSeparator splits a namespace prefix from a control name.
const NamespaceSeparator = ":"

// StripNamespace returns the bare control name with every namespace prefix removed.
func StripNamespace(id string) string {
	if idx := strings.LastIndex(id, NamespaceSeparator); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

// Namespace returns the leading namespace of id, if any. Nested namespaces
// collapse to the outermost one: "a:b:ctrl" reports "a".
func Namespace(id string) (string, bool) {
	idx := strings.Index(id, NamespaceSeparator)
	if idx <= 0 {
		return "", false
	}
	return id[:idx], true
}

// Qualify prefixes name with namespace. An empty namespace leaves name untouched.
func Qualify(namespace, name string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return name
	}
	return namespace + NamespaceSeparator + name
}
