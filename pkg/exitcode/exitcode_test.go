/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package exitcode

import (
	"testing"
)

func TestExitCodeConstants(t *testing.T) {
	codes := map[string]struct{ got, want int }{
		"Success":             {Success, 0},
		"GeneralError":        {GeneralError, 1},
		"ConfigError":         {ConfigError, 2},
		"ValidationError":     {ValidationError, 3},
		"NotFoundError":       {NotFoundError, 4},
		"NetworkError":        {NetworkError, 5},
		"ProtocolError":       {ProtocolError, 6},
		"ConfirmationTimeout": {ConfirmationTimeout, 7},
		"TransferError":       {TransferError, 8},
		"Interrupted":         {Interrupted, 130},
	}
	for name, c := range codes {
		if c.got != c.want {
			t.Errorf("%s = %d, expected %d", name, c.got, c.want)
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{Success, "Success"},
		{ValidationError, "Validation error"},
		{NotFoundError, "Not found"},
		{ProtocolError, "Asset store protocol error"},
		{ConfirmationTimeout, "Asset confirmation timed out"},
		{TransferError, "Asset upload failed"},
		{999, "Unknown error"},
	}

	for _, test := range tests {
		if result := String(test.code); result != test.expected {
			t.Errorf("String(%d) = %q, expected %q", test.code, result, test.expected)
		}
	}
}
