package domain

import (
	"fmt"
	"strings"
)

// MaxDerivedTitle is the number of characters of a first message used as a thread title
const MaxDerivedTitle = 50

// BaseName strips the final extension from a file name: "Sales.csv" -> "Sales".
// Names without an extension, or ending in a bare dot, are returned as-is.
func BaseName(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 || idx == len(fileName)-1 || strings.Contains(fileName[idx:], "/") {
		return fileName
	}
	return fileName[:idx]
}

// UniqueTitle returns base, or base suffixed with " (n)" for the smallest
// positive n that does not collide with an existing title.
func UniqueTitle(base string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		taken[t] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// TitleFromMessage derives a thread title from the first message of a thread
func TitleFromMessage(content string) string {
	runes := []rune(content)
	if len(runes) <= MaxDerivedTitle {
		return content
	}
	return string(runes[:MaxDerivedTitle])
}
