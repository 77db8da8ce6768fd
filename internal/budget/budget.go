// Package budget provides prompt size estimation. Because chefai supports
// multiple LLM backends with different tokenizers, this package uses a
// conservative character-based heuristic: 1 token ≈ 4 characters.
package budget

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English prose.
	charsPerToken = 4

	// DefaultMaxPromptTokens is the default prompt budget in tokens. A
	// composed prompt is three recipes plus fixed policy text, so exceeding
	// it usually means an oversized knowledge-base record.
	DefaultMaxPromptTokens = 30000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// Exceeds reports the estimated size of s and whether it is over maxTokens.
// A non-positive maxTokens disables the check.
func Exceeds(s string, maxTokens int) (int, bool) {
	n := Estimate(s)
	return n, maxTokens > 0 && n > maxTokens
}
