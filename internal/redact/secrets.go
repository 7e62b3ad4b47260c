package redact

import "regexp"

// KindSecret covers credentials pasted into a chat message
const KindSecret Kind = "secret"

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]{20,}`),                                // Anthropic
	regexp.MustCompile(`\bsk-(?:proj-)?[A-Za-z0-9_\-]{20,}`),                          // OpenAI
	regexp.MustCompile(`\bpcsk_[A-Za-z0-9_]{20,}`),                                    // Pinecone
	regexp.MustCompile(`\bhf_[A-Za-z0-9]{30,}\b`),                                     // HuggingFace
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),                                        // AWS access key
	regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}\b`),                                  // GCP API key
	regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\b`), // JWT
	regexp.MustCompile(`(?i)\b(?:password|passwd|pwd)\s*[:=]\s*\S{6,}`),
}

func detectSecrets(add func(Kind, *regexp.Regexp, func(string) bool)) {
	for _, p := range secretPatterns {
		add(KindSecret, p, nil)
	}
}
