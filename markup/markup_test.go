package markup

import (
	"strings"
	"testing"
)

func TestIsOnlyAllowedTags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"no tags", "plain text without markup", true},
		{"allowed tags", "<b>bold</b> and <i>italic</i>", true},
		{"allowed uppercase", "<B>bold</B> and <I>italic</I>", true},
		{"allowed with spaces", "< b >loose</ b >", true},
		{"disallowed div", "<div>block</div>", false},
		{"disallowed br", "line<br>break", false},
		{"disallowed among allowed", "<b>ok</b><span>bad</span>", false},
		{"tag with attributes", `<a href="https://example.com">link</a>`, false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOnlyAllowedTags(tt.text); got != tt.want {
				t.Errorf("IsOnlyAllowedTags(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCleanForTelegram_LineBreaks(t *testing.T) {
	for _, br := range []string{"<br>", "<br/>", "<br />", "<BR>", "< br >"} {
		got := CleanForTelegram("one" + br + "two")
		if got != "one\ntwo" {
			t.Errorf("CleanForTelegram(one%stwo) = %q, want %q", br, got, "one\ntwo")
		}
	}
}

func TestCleanForTelegram_StripsDisallowedKeepsAllowed(t *testing.T) {
	got := CleanForTelegram("<div><b>Title</b> and <i>mood</i> here</div>")
	if !strings.Contains(got, "<b>Title</b>") {
		t.Errorf("CleanForTelegram() = %q, want <b> preserved", got)
	}
	if !strings.Contains(got, "<i>mood</i>") {
		t.Errorf("CleanForTelegram() = %q, want <i> preserved", got)
	}
	if strings.Contains(got, "div") {
		t.Errorf("CleanForTelegram() = %q, want div stripped", got)
	}
}

func TestCleanForTelegram_CollapsesWhitespaceAroundNewlines(t *testing.T) {
	got := CleanForTelegram("first   <br>   second")
	if got != "first\nsecond" {
		t.Errorf("CleanForTelegram() = %q, want %q", got, "first\nsecond")
	}
}

func TestCleanForTelegram_Empty(t *testing.T) {
	if got := CleanForTelegram(""); got != "" {
		t.Errorf("CleanForTelegram(\"\") = %q, want empty", got)
	}
}

// Sanitization must be a valid terminal state: whatever goes in, the output
// satisfies the tag contract.
func TestCleanForTelegram_OutputAlwaysSatisfiesContract(t *testing.T) {
	inputs := []string{
		"plain",
		"<b>fine</b>",
		"<script>alert(1)</script>payload",
		"<div class=\"x\"><span>nested</span><br/></div>",
		"broken <em unclosed",
		"<a href='u'>link</a> & ampersand < stray",
		"<B>upper</B><DIV>upper div</DIV>",
	}

	for _, in := range inputs {
		cleaned := CleanForTelegram(in)
		if !IsOnlyAllowedTags(cleaned) {
			t.Errorf("IsOnlyAllowedTags(CleanForTelegram(%q)) = false; cleaned = %q", in, cleaned)
		}
	}
}

func TestCleanForTelegram_Idempotent(t *testing.T) {
	inputs := []string{
		"plain text",
		"<b>bold</b><br><i>italic</i>",
		"<div>   spaced   </div><br/>tail",
		"entities &amp; more &lt;b&gt;",
		"line one\n   line two   \nline three",
	}

	for _, in := range inputs {
		once := CleanForTelegram(in)
		twice := CleanForTelegram(once)
		if once != twice {
			t.Errorf("CleanForTelegram not idempotent for %q:\n once = %q\ntwice = %q", in, once, twice)
		}
	}
}
