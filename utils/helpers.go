package utils

import "strings"

// UniqueStrings returns the non-blank entries of slice without duplicates, keeping first-seen order.
func UniqueStrings(slice []string) []string {
	keys := make(map[string]bool)
	uniqueSlice := []string{}
	for _, entry := range slice {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, value := keys[entry]; !value {
			keys[entry] = true
			uniqueSlice = append(uniqueSlice, entry)
		}
	}
	return uniqueSlice
}

// SplitList splits a comma separated flag value such as "5009, 5010,5009".
func SplitList(value string) []string {
	return UniqueStrings(strings.Split(value, ","))
}
