package detectors

import "math"

// ShannonEntropy returns the Shannon entropy of s in bits per character.
// The empty string has zero entropy.
func ShannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	n := 0
	for _, c := range s {
		freq[c]++
		n++
	}
	var ent float64
	for _, count := range freq {
		p := float64(count) / float64(n)
		ent -= p * math.Log2(p)
	}
	return ent
}
