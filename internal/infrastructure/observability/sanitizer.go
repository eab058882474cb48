package observability

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// PIILevel controls how user content is written to spans.
type PIILevel string

const (
	// PIILevelNone redacts all user content.
	PIILevelNone PIILevel = "none"
	// PIILevelHashed replaces detected identifiers with salted hashes.
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull records content unchanged.
	PIILevelFull PIILevel = "full"
)

// maxAttributeRunes bounds message text attached to a span.
const maxAttributeRunes = 256

// Sanitizer scrubs user identifiers and chat text before they reach telemetry.
type Sanitizer struct {
	level PIILevel
	salt  string

	emailPattern *regexp.Regexp
	phonePattern *regexp.Regexp
	ssnPattern   *regexp.Regexp
	cardPattern  *regexp.Regexp
	dobPattern   *regexp.Regexp
}

// NewSanitizer creates a sanitizer. Unknown levels behave as hashed.
func NewSanitizer(level PIILevel, salt string) *Sanitizer {
	switch level {
	case PIILevelNone, PIILevelHashed, PIILevelFull:
	default:
		level = PIILevelHashed
	}
	return &Sanitizer{
		level:        level,
		salt:         salt,
		emailPattern: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		phonePattern: regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		ssnPattern:   regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		cardPattern:  regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
		dobPattern:   regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
	}
}

// Level returns the effective level.
func (s *Sanitizer) Level() PIILevel {
	return s.level
}

// Message scrubs chat text and truncates it for use as a span attribute.
func (s *Sanitizer) Message(text string) string {
	switch s.level {
	case PIILevelNone:
		return "[REDACTED]"
	case PIILevelFull:
		return truncate(text)
	}

	// SSNs before phones, since the phone pattern also matches some SSNs.
	out := s.ssnPattern.ReplaceAllString(text, "[SSN:REDACTED]")
	out = s.cardPattern.ReplaceAllString(out, "[CC:REDACTED]")
	out = s.dobPattern.ReplaceAllString(out, "[DOB:REDACTED]")
	out = s.emailPattern.ReplaceAllStringFunc(out, func(match string) string {
		return "[EMAIL:" + s.hash(match) + "]"
	})
	out = s.phonePattern.ReplaceAllStringFunc(out, func(match string) string {
		return "[PHONE:" + s.hash(match) + "]"
	})
	return truncate(out)
}

// UserID hashes or redacts a user identifier.
func (s *Sanitizer) UserID(userID string) string {
	if userID == "" {
		return ""
	}
	switch s.level {
	case PIILevelNone:
		return "[REDACTED]"
	case PIILevelFull:
		return userID
	default:
		return s.hash(userID)
	}
}

func (s *Sanitizer) hash(value string) string {
	sum := sha256.Sum256([]byte(value + s.salt))
	return hex.EncodeToString(sum[:])[:8]
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxAttributeRunes {
		return text
	}
	return string([]rune(text)[:maxAttributeRunes]) + "..."
}

var sanitizer atomic.Pointer[Sanitizer]

func init() {
	sanitizer.Store(NewSanitizer(PIILevelHashed, ""))
}

// SetSanitizer replaces the sanitizer used by the span helpers.
func SetSanitizer(s *Sanitizer) {
	if s != nil {
		sanitizer.Store(s)
	}
}

// CurrentSanitizer returns the sanitizer used by the span helpers.
func CurrentSanitizer() *Sanitizer {
	return sanitizer.Load()
}
