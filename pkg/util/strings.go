package util

import "strings"

// NormaliseIdentifiers trims every identifier and drops blanks and duplicates,
// keeping first-seen order
func NormaliseIdentifiers(identifiers []string) []string {
	trimmed := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		trimmed = append(trimmed, strings.TrimSpace(identifier))
	}

	return RemoveDuplicateStrings(trimmed, nil)
}

func RemoveDuplicateStrings(strings []string, ignoreList []string) []string {
	presentStrings := make(map[string]bool)
	var list []string

	for _, ignoreString := range ignoreList {
		presentStrings[ignoreString] = true
	}

	for _, item := range strings {
		if _, value := presentStrings[item]; !value && item != "" {
			presentStrings[item] = true
			list = append(list, item)
		}
	}
	return list
}

func ContainsString(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}

	return false
}

func StringSet(s []string) map[string]bool {
	set := make(map[string]bool, len(s))
	for _, v := range s {
		set[v] = true
	}
	return set
}
