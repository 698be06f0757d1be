package crypto

import (
	"bytes"
	"testing"
)

func TestBase64RoundTrip(t *testing.T) {
	data := []byte{0x00, 0xfb, 0xff, 0x10, 0x3e}
	encoded := ToBase64(data)
	decoded, err := FromBase64(encoded)
	if err != nil {
		t.Fatalf("FromBase64() error = %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Errorf("FromBase64() = %x, want %x", decoded, data)
	}
}

func TestDecodeBase64_MultipleFormats(t *testing.T) {
	want := []byte{0xfb, 0xff, 0xbf}
	tests := []struct {
		name  string
		input string
	}{
		{"standard", "+/+/"},
		{"url safe", "-_-_"},
		{"wrapped", "+/\n+/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64(tt.input)
			if err != nil {
				t.Fatalf("DecodeBase64() error = %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("DecodeBase64() = %x, want %x", got, want)
			}
		})
	}

	got, err := DecodeBase64("aGk")
	if err != nil || string(got) != "hi" {
		t.Errorf("DecodeBase64(unpadded) = %q, %v", got, err)
	}
}

func TestFromBase64_InvalidInput(t *testing.T) {
	if _, err := FromBase64("!!!"); err == nil {
		t.Error("expected error for invalid input")
	}
}
