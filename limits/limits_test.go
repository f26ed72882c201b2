package limits

import (
	"bytes"
	"errors"
	"testing"
)

func TestReceiveBufferOrdering(t *testing.T) {
	if MaxCookieDatagram > MaxChallengeReply || MaxChallengeReply > MaxLoginReply {
		t.Errorf("receive buffers out of order: cookie=%d challenge=%d login=%d",
			MaxCookieDatagram, MaxChallengeReply, MaxLoginReply)
	}
	if MaxLoginReply > MaxDatagram {
		t.Errorf("MaxLoginReply %d exceeds MaxDatagram %d", MaxLoginReply, MaxDatagram)
	}
}

func TestValidateMessageSize(t *testing.T) {
	tests := []struct {
		name    string
		message []byte
		max     int
		wantErr error
	}{
		{"nil", nil, 10, ErrMessageEmpty},
		{"empty", []byte{}, 10, ErrMessageEmpty},
		{"at limit", make([]byte, 10), 10, nil},
		{"over limit", make([]byte, 11), 10, ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessageSize(tt.message, tt.max)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCookie(t *testing.T) {
	tests := []struct {
		name    string
		cookie  []byte
		wantErr error
	}{
		{"opaque bytes", []byte{0x00, 0xff, 0x10, 'x'}, nil},
		{"empty", nil, ErrMessageEmpty},
		{"oversized", bytes.Repeat([]byte("a"), MaxCookieSize+1), ErrMessageTooLarge},
		{"delimiter", []byte("abc,def"), ErrInvalidCookie},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCookie(tt.cookie)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	if err := ValidateUsername("alice"); err != nil {
		t.Errorf("valid username rejected: %v", err)
	}
	if err := ValidateUsername(""); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("empty username: got %v", err)
	}
	if err := ValidateUsername("a,b"); err == nil {
		t.Error("username with delimiter accepted")
	}
	if err := ValidateUsername(string(bytes.Repeat([]byte("u"), MaxUsernameLength+1))); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("long username: got %v", err)
	}
}

func TestValidateChatMessage(t *testing.T) {
	if err := ValidateChatMessage([]byte("hello, bob")); err != nil {
		t.Errorf("valid message rejected: %v", err)
	}
	if err := ValidateChatMessage(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("empty message: got %v", err)
	}
	if err := ValidateChatMessage(bytes.Repeat([]byte("m"), MaxChatMessage+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("long message: got %v", err)
	}
}
