package config

import "encoding/json"

const redactedPlaceholder = "[REDACTED]"

// SecureString holds a secret that must never show up in logs or dumps.
type SecureString string

func (s SecureString) String() string {
	return redactedPlaceholder
}

func (s SecureString) GoString() string {
	return redactedPlaceholder
}

func (s SecureString) MarshalJSON() ([]byte, error) {
	return json.Marshal(redactedPlaceholder)
}

// Value returns the secret itself.
func (s SecureString) Value() string {
	return string(s)
}
