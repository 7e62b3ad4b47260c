package redact

import (
	"testing"
)

func TestContains(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"no identifiers", "What are the symptoms of diabetes?", false},
		{"dosage is not a phone", "Take 500 mg twice a day for 10 days", false},
		{"email", "Contact me at john.doe@example.com", true},
		{"us phone", "Call me at 555-123-4567", true},
		{"international phone", "My number is +44 20 7946 0958", true},
		{"ssn", "My SSN is 123-45-6789", true},
		{"bare ssn", "ssn 123456789", true},
		{"invalid bare ssn", "ref 999456789", false},
		{"credit card", "Use card 4532015112830366", true},
		{"card failing luhn", "Number 4532015112830367", false},
		{"ip address", "Server at 192.168.1.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Contains(tt.text); got != tt.expected {
				t.Errorf("Contains(%q) = %v, want %v (detections %+v)", tt.text, got, tt.expected, Detect(tt.text))
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "nothing to redact",
			text:     "I have a headache",
			expected: "I have a headache",
		},
		{
			name:     "email and phone",
			text:     "Reach me at jane@clinic.org or 555-123-4567.",
			expected: "Reach me at [EMAIL_REDACTED] or [PHONE_REDACTED].",
		},
		{
			name:     "ssn",
			text:     "SSN 123-45-6789 on file",
			expected: "SSN [SSN_REDACTED] on file",
		},
		{
			name:     "card with spaces",
			text:     "card 4532 0151 1283 0366 expired",
			expected: "card [CC_REDACTED] expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := String(tt.text); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDetect_Ordered(t *testing.T) {
	d := Detect("b@x.io then 10.0.0.1 then a@y.io")
	if len(d) != 3 {
		t.Fatalf("got %d detections, want 3: %+v", len(d), d)
	}
	for i := 1; i < len(d); i++ {
		if d[i].Start < d[i-1].Start {
			t.Errorf("detections out of order: %+v", d)
		}
	}
	if d[1].Kind != KindIPAddress {
		t.Errorf("d[1].Kind = %s, want ip_address", d[1].Kind)
	}
}

func TestString_Secrets(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "openai key",
			text:     "my key is sk-proj-abcdefghijklmnopqrstuvwx",
			expected: "my key is [SECRET_REDACTED]",
		},
		{
			name:     "anthropic key",
			text:     "sk-ant-REDACTED leaked",
			expected: "[SECRET_REDACTED] leaked",
		},
		{
			name:     "password assignment",
			text:     "password=hunter2hunter2",
			expected: "[SECRET_REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := String(tt.text); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
