package resp

import (
	"errors"
	"strings"
	"testing"
)

func TestReadCommandMultiBulk(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "*1\r\n$4\r\nPING\r\n", []string{"PING"}},
		{"with args", "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n", []string{"SET", "k", "v"}},
		{"empty bulk", "*2\r\n$3\r\nGET\r\n$0\r\n\r\n", []string{"GET", ""}},
		{"binary arg", "*2\r\n$4\r\nECHO\r\n$3\r\n\x00\x01\x02\r\n", []string{"ECHO", "\x00\x01\x02"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(strings.NewReader(tt.input))
			args, err := d.ReadCommand()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(args) != len(tt.want) {
				t.Fatalf("got %d args, want %d", len(args), len(tt.want))
			}
			for i, w := range tt.want {
				if string(args[i]) != w {
					t.Errorf("arg[%d] = %q, want %q", i, args[i], w)
				}
			}
		})
	}
}

func TestReadCommandInline(t *testing.T) {
	d := NewDecoder(strings.NewReader("SET key value\r\nPING\r\n"))

	args, err := d.ReadCommand()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 3 || string(args[0]) != "SET" || string(args[2]) != "value" {
		t.Errorf("inline parse wrong: %q", args)
	}

	args, err = d.ReadCommand()
	if err != nil || len(args) != 1 || string(args[0]) != "PING" {
		t.Errorf("second inline parse wrong: %q err %v", args, err)
	}
}

func TestReadCommandEmptyInlineLine(t *testing.T) {
	d := NewDecoder(strings.NewReader("\r\n"))
	args, err := d.ReadCommand()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 0 {
		t.Errorf("empty line should yield no args, got %q", args)
	}
}

func TestReadCommandProtocolErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad bulk prefix", "*1\r\n:5\r\n"},
		{"negative multibulk payload", "*1\r\n$-5\r\n"},
		{"missing crlf after bulk", "*1\r\n$4\r\nPINGxx"},
		{"bad length line", "*x\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(strings.NewReader(tt.input))
			_, err := d.ReadCommand()
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("expected protocol error, got %v", err)
			}
		})
	}
}
