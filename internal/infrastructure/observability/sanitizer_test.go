package observability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizer_Message(t *testing.T) {
	hashed := NewSanitizer(PIILevelHashed, "health-agent")

	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:        "email",
			input:       "Send my plan to john.doe@example.com please",
			contains:    []string{"[EMAIL:", "please"},
			notContains: []string{"john.doe@example.com"},
		},
		{
			name:        "phone",
			input:       "Call me at 555-123-4567",
			contains:    []string{"[PHONE:"},
			notContains: []string{"555-123-4567"},
		},
		{
			name:        "ssn before phone",
			input:       "SSN 123-45-6789",
			contains:    []string{"[SSN:REDACTED]"},
			notContains: []string{"6789", "[PHONE:"},
		},
		{
			name:     "card",
			input:    "charge 4111 1111 1111 1111",
			contains: []string{"[CC:REDACTED]"},
		},
		{
			name:        "date of birth",
			input:       "born 04/12/1983, blood pressure 140/90",
			contains:    []string{"[DOB:REDACTED]", "140/90"},
			notContains: []string{"1983"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := hashed.Message(tt.input)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSanitizer_Levels(t *testing.T) {
	input := "reach me at sam@example.com"

	assert.Equal(t, "[REDACTED]", NewSanitizer(PIILevelNone, "").Message(input))
	assert.Equal(t, input, NewSanitizer(PIILevelFull, "").Message(input))
	assert.Equal(t, PIILevelHashed, NewSanitizer("bogus", "").Level())

	assert.Equal(t, "[REDACTED]", NewSanitizer(PIILevelNone, "").UserID("u1"))
	assert.Equal(t, "u1", NewSanitizer(PIILevelFull, "").UserID("u1"))
	assert.Empty(t, NewSanitizer(PIILevelHashed, "").UserID(""))
}

func TestSanitizer_HashIsSaltedAndStable(t *testing.T) {
	a := NewSanitizer(PIILevelHashed, "salt-a")
	b := NewSanitizer(PIILevelHashed, "salt-b")

	assert.Len(t, a.UserID("u1"), 8)
	assert.Equal(t, a.UserID("u1"), a.UserID("u1"))
	assert.NotEqual(t, a.UserID("u1"), b.UserID("u1"))
}

func TestSanitizer_Truncates(t *testing.T) {
	out := NewSanitizer(PIILevelFull, "").Message(strings.Repeat("a", maxAttributeRunes+10))
	assert.Equal(t, maxAttributeRunes+3, len(out))
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestSetSanitizer(t *testing.T) {
	prev := CurrentSanitizer()
	t.Cleanup(func() { SetSanitizer(prev) })

	SetSanitizer(NewSanitizer(PIILevelNone, ""))
	assert.Equal(t, PIILevelNone, CurrentSanitizer().Level())

	SetSanitizer(nil)
	assert.Equal(t, PIILevelNone, CurrentSanitizer().Level())
}
