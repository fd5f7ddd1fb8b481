package text

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/glowlink/glowlink/pkg/protocol"
)

func TestIsEmoji(t *testing.T) {
	tests := []struct {
		name string
		r    rune
		want bool
	}{
		{"grinning face", '\U0001F600', true},
		{"heart without selector", '❤', true},
		{"spade suit", '♠', true},
		{"rightwards arrow", '→', true},
		{"circled one", '①', true},
		{"trade mark", '™', true},
		{"ascii letter", 'A', false},
		{"hiragana", 'あ', false},
		{"digit", '7', false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEmoji(tt.r); got != tt.want {
				t.Errorf("IsEmoji(%q) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestSegments(t *testing.T) {
	segs := Segments("Hello \U0001F600 World ❤")
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].Text != "Hello " {
		t.Errorf("segment 0 = %q, want %q", segs[0].Text, "Hello ")
	}
	if segs[1].Emoji != '\U0001F600' {
		t.Errorf("segment 1 emoji = %U, want U+1F600", segs[1].Emoji)
	}
	if segs[2].Text != " World " {
		t.Errorf("segment 2 = %q, want %q", segs[2].Text, " World ")
	}
	if segs[3].Emoji != '❤' {
		t.Errorf("segment 3 emoji = %U, want U+2764", segs[3].Emoji)
	}
}

func TestSegmentsPlainText(t *testing.T) {
	segs := Segments("no emoji here")
	if len(segs) != 1 || segs[0].Text != "no emoji here" {
		t.Fatalf("expected single text segment, got %+v", segs)
	}
}

func TestSegmentsEmpty(t *testing.T) {
	if segs := Segments(""); segs != nil {
		t.Fatalf("expected nil for empty input, got %+v", segs)
	}
}

func TestWrapHonorsNewlines(t *testing.T) {
	lines := Wrap("one\ntwo\n\nthree", 1000, protocol.SizeMedium)
	want := []string{"one", "two", "", "three"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestWrapBreaksAtWidth(t *testing.T) {
	// Medium ASCII glyphs advance 12px, so 48px fits exactly 4 runes.
	lines := Wrap("abcdefgh", 48, protocol.SizeMedium)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "abcd" || lines[1] != "efgh" {
		t.Errorf("lines = %q, want [abcd efgh]", lines)
	}
}

func TestWrapDoubleWidthRunes(t *testing.T) {
	// CJK runes advance 24px at Medium, so 48px fits 2 per line.
	lines := Wrap("あいうえ", 48, protocol.SizeMedium)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "あい" || lines[1] != "うえ" {
		t.Errorf("lines = %q", lines)
	}
}

func TestWrapNeverDropsRunes(t *testing.T) {
	// A single rune wider than the area still lands on its own line.
	lines := Wrap("あ", 8, protocol.SizeMedium)
	if len(lines) != 1 || lines[0] != "あ" {
		t.Fatalf("expected the rune kept on one line, got %q", lines)
	}
}

func TestLayoutLineAdvancesCursor(t *testing.T) {
	cmds := LayoutLine("ab\U0001F600c", 10, 20, protocol.SizeSmall, protocol.White)
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}

	txt, ok := cmds[0].(protocol.Text)
	if !ok {
		t.Fatalf("command 0 is %T, want Text", cmds[0])
	}
	if txt.X != 10 || txt.Y != 20 || txt.Text != "ab" {
		t.Errorf("text command = %+v", txt)
	}

	// Small ASCII advance is 8px, so the emoji starts at 10+16.
	em, ok := cmds[1].(protocol.Emoji)
	if !ok {
		t.Fatalf("command 1 is %T, want Emoji", cmds[1])
	}
	if em.X != 26 || em.Code != 0x1F600 {
		t.Errorf("emoji command = %+v", em)
	}

	// Emoji advances 16px, so the trailing text starts at 26+16.
	tail, ok := cmds[2].(protocol.Text)
	if !ok {
		t.Fatalf("command 2 is %T, want Text", cmds[2])
	}
	if tail.X != 42 || tail.Text != "c" {
		t.Errorf("trailing text = %+v", tail)
	}
}

func TestLayoutStacksLines(t *testing.T) {
	cmds := Layout("abcd\nef", 0, 0, 1000, protocol.SizeMedium, protocol.White)
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	second, ok := cmds[1].(protocol.Text)
	if !ok {
		t.Fatalf("command 1 is %T, want Text", cmds[1])
	}
	if int(second.Y) != protocol.SizeMedium.Pixels() {
		t.Errorf("second line Y = %d, want %d", second.Y, protocol.SizeMedium.Pixels())
	}
}

func TestClampByte(t *testing.T) {
	if clampByte(-5) != 0 {
		t.Error("negative should clamp to 0")
	}
	if clampByte(300) != 255 {
		t.Error("overflow should clamp to 255")
	}
	if clampByte(128) != 128 {
		t.Error("in-range value should pass through")
	}
}

func TestLayoutLineSplitsLongText(t *testing.T) {
	long := strings.Repeat("a", 300)
	cmds := LayoutLine(long, 0, 0, protocol.SizeSmall, protocol.White)
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	first := cmds[0].(protocol.Text)
	second := cmds[1].(protocol.Text)
	if len(first.Text) != 255 || len(second.Text) != 45 {
		t.Errorf("chunk lengths = %d, %d, want 255, 45", len(first.Text), len(second.Text))
	}
	if first.Text+second.Text != long {
		t.Error("chunks should reassemble the original text")
	}
}

func TestSplitTextChunksRuneBoundaries(t *testing.T) {
	// 100 three-byte runes; 85 fit in 255 bytes.
	long := strings.Repeat("あ", 100)
	chunks := splitTextChunks(long)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 255 {
			t.Errorf("chunk %d is %d bytes", i, len(c))
		}
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d splits a rune", i)
		}
	}
	if chunks[0]+chunks[1] != long {
		t.Error("chunks should reassemble the original text")
	}
}
