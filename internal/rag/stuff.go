package rag

import "strings"

const documentSeparator = "\n\n"

// StuffDocuments joins document contents into a single context string.
// Blank documents are dropped.
func StuffDocuments(docs []Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if c := strings.TrimSpace(d.Content); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, documentSeparator)
}

// Sources returns the distinct source labels of docs in order
func Sources(docs []Document) []string {
	seen := make(map[string]struct{}, len(docs))
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		s := d.Source()
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
