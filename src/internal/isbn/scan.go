package isbn

import "regexp"

// candidatePattern matches runs of digits, dashes and whitespace that end in a
// digit or X. Validate does the cleaning.
var candidatePattern = regexp.MustCompile(`[0-9\-\s]+[0-9X]`)

// Scan returns the distinct candidate strings found in the first maxChars
// characters of text. maxChars <= 0 scans everything. Candidates come back in
// order of first occurrence.
func Scan(text string, maxChars int) []string {
	text = truncate(text, maxChars)
	matches := candidatePattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Find scans text and returns the distinct valid ISBNs, in order of first
// occurrence.
func Find(text string, maxChars int) []ISBN {
	var out []ISBN
	seen := map[string]bool{}
	for _, c := range Scan(text, maxChars) {
		v, ok := Validate(c)
		if !ok || seen[v.Text] {
			continue
		}
		seen[v.Text] = true
		out = append(out, v)
	}
	return out
}

// truncate cuts s after n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for pos := range s {
		if count == n {
			return s[:pos]
		}
		count++
	}
	return s
}
