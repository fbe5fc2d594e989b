package fileutils

import "strings"

const keySeparator = "/"

// BuildObjectKey joins a destination prefix and a file name into an object
// key. An empty prefix yields the bare name.
func BuildObjectKey(prefix, name string) string {
	prefix = strings.TrimSuffix(prefix, keySeparator)
	if prefix == "" {
		return name
	}
	return prefix + keySeparator + name
}

// ListPrefix turns a folder-like prefix into a listing prefix by appending
// the separator. An empty prefix lists the bucket root.
func ListPrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, keySeparator) {
		return prefix
	}
	return prefix + keySeparator
}
