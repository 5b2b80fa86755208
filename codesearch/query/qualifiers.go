package query

import (
	"sort"
	"strings"
)

// Qualifier binds a "key:" prefix to a storage column and describes how the
// value is shaped before it is used as a LIKE pattern.
type Qualifier struct {
	Key string
	// StorageField is the fully qualified column the value is matched against.
	StorageField string
	// NormalizeValue transforms the unescaped text value.
	NormalizeValue func(string) string
	// ToLikePattern wraps an already LIKE-escaped value.
	ToLikePattern func(string) string
}

func identity(s string) string { return s }

func contains(escaped string) string { return "%" + escaped + "%" }

func suffix(escaped string) string { return "%" + escaped }

var qualifiers = map[string]Qualifier{
	"namespace": {
		Key:            "namespace",
		StorageField:   "repositories.full_name",
		NormalizeValue: identity,
		ToLikePattern:  contains,
	},
	"path": {
		Key:            "path",
		StorageField:   "repository_files.file_path",
		NormalizeValue: identity,
		ToLikePattern:  contains,
	},
	"filename": {
		Key:            "filename",
		StorageField:   "repository_files.file_name",
		NormalizeValue: identity,
		ToLikePattern:  contains,
	},
	"extension": {
		Key:          "extension",
		StorageField: "repository_files.file_name",
		NormalizeValue: func(v string) string {
			if strings.HasPrefix(v, ".") {
				return v
			}
			return "." + v
		},
		ToLikePattern: suffix,
	},
}

// LookupQualifier finds a qualifier by key, ignoring case.
func LookupQualifier(key string) (Qualifier, bool) {
	q, ok := qualifiers[strings.ToLower(key)]
	return q, ok
}

// QualifierKeys returns the registered keys in sorted order.
func QualifierKeys() []string {
	keys := make([]string, 0, len(qualifiers))
	for k := range qualifiers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
