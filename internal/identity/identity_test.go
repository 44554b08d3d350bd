package identity

import (
	"errors"
	"testing"
)

func TestParseURL_Valid(t *testing.T) {
	tests := []struct {
		url    string
		site   string
		board  string
		thread string
	}{
		{"https://boards.example.org/g/thread/555", "example.org", "g", "555"},
		{"https://boards.4chan.org/g/thread/101010101", "4chan.org", "g", "101010101"},
		{"https://boards.4channel.org/vg/thread/42/some-slug", "4channel.org", "vg", "42"},
		{"https://boards.4chan.org/biz/thread/7#p8", "4chan.org", "biz", "7"},
		{"https://boards.4chan.org/3/thread/9?x=1", "4chan.org", "3", "9"},
		{"  https://boards.example.org/g/thread/555\n", "example.org", "g", "555"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			ref, err := ParseURL(tt.url)
			if err != nil {
				t.Fatalf("ParseURL(%q) failed: %v", tt.url, err)
			}
			if ref.Site != tt.site || ref.Board != tt.board || ref.ThreadID != tt.thread {
				t.Errorf("ParseURL(%q) = %+v, want site=%s board=%s thread=%s", tt.url, ref, tt.site, tt.board, tt.thread)
			}
		})
	}
}

func TestParseURL_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"g/555",
		"http://boards.example.org/g/thread/555",
		"https://example.org/g/thread/555",
		"https://boards.example.org/g/555",
		"https://boards.example.org/g/thread/",
		"https://boards.example.org/g/thread/abc",
		"https://boards.example.org/g/thread/12abc",
		"https://boards.example.org//thread/1",
		"ftp://boards.example.org/g/thread/1",
	}

	for _, in := range invalid {
		t.Run(in, func(t *testing.T) {
			_, err := ParseURL(in)
			if !errors.Is(err, ErrInvalidReference) {
				t.Errorf("ParseURL(%q) error = %v, want ErrInvalidReference", in, err)
			}
		})
	}
}

func TestManual(t *testing.T) {
	// Manual pairs skip pattern validation entirely.
	ref, err := Manual("not a board", "not-a-number")
	if err != nil {
		t.Fatalf("Manual failed: %v", err)
	}
	if ref.Board != "not a board" || ref.ThreadID != "not-a-number" || ref.Site != "" {
		t.Errorf("unexpected ref %+v", ref)
	}

	for _, pair := range [][2]string{{"", "1"}, {"g", ""}, {"  ", "1"}} {
		if _, err := Manual(pair[0], pair[1]); !errors.Is(err, ErrInvalidReference) {
			t.Errorf("Manual(%q, %q) error = %v, want ErrInvalidReference", pair[0], pair[1], err)
		}
	}
}

func TestRef_Key(t *testing.T) {
	ref := Ref{Site: "example.org", Board: "g", ThreadID: "555"}
	if got := ref.Key().String(); got != "/g/555" {
		t.Errorf("Key().String() = %s, want /g/555", got)
	}
}
