package textutil_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leonletto/threadtrack/internal/textutil"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"empty", "", ""},
		{"quote link", `<a href="#p123" class="quotelink">&gt;&gt;123</a><br>agreed`, ">>123\nagreed"},
		{"greentext", `<span class="quote">&gt;be me</span>`, ">be me"},
		{"entities", "it&#039;s &amp; that", "it's & that"},
		{"self closing br", "a<br/>b<BR />c", "a\nb\nc"},
		{"word break", "long<wbr>word", "longword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textutil.StripMarkup(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", textutil.Truncate("abc", 3))
	assert.Equal(t, "ab...", textutil.Truncate("abc", 2))
	assert.Equal(t, "abc", textutil.Truncate("abc", 0))
	// Counts runes, never splits a multi-byte character.
	assert.Equal(t, "日本...", textutil.Truncate("日本語", 2))
}

func TestPreview(t *testing.T) {
	body := "<b>" + strings.Repeat("x", 250) + "</b>"
	got := textutil.Preview(body, 200)
	assert.Equal(t, strings.Repeat("x", 200)+textutil.Ellipsis, got)
}

func TestSingleLine(t *testing.T) {
	assert.Equal(t, "a b c", textutil.SingleLine(" a\n b\t\tc "))
}
