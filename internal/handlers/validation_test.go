package handlers

import (
	"testing"

	"github.com/glowlink/glowlink/pkg/models"
	"github.com/glowlink/glowlink/pkg/protocol"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  protocol.Color
	}{
		{"named red", "red", protocol.Color{R: 255}},
		{"named uppercase", "BLUE", protocol.Color{B: 255}},
		{"grey alias", "grey", protocol.Color{R: 128, G: 128, B: 128}},
		{"hex", "#FF8000", protocol.Color{R: 255, G: 128, B: 0}},
		{"hex lowercase", "#00ff00", protocol.Color{G: 255}},
		{"rgb triple", "10, 20, 30", protocol.Color{R: 10, G: 20, B: 30}},
		{"empty falls back to white", "", protocol.White},
		{"unknown falls back to white", "notacolor", protocol.White},
		{"bad hex falls back to white", "#GGGGGG", protocol.White},
		{"out of range triple falls back", "300,0,0", protocol.White},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseColor(tt.input); got != tt.want {
				t.Errorf("ParseColor(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		input string
		want  Selector
	}{
		{"", Selector{All: true}},
		{"all", Selector{All: true}},
		{"ALL", Selector{All: true}},
		{"3", Selector{Ordinal: 3}},
		{"glow-badge", Selector{Name: "glow-badge"}},
	}
	for _, tt := range tests {
		if got := ParseSelector(tt.input); got != tt.want {
			t.Errorf("ParseSelector(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestBuildDrawCommands(t *testing.T) {
	cmds, err := BuildDrawCommands([]models.DrawCommand{
		{Type: "clear", Color: "black"},
		{Type: "text", X: 5, Y: 10, Text: "hi", Color: "white", Size: "small"},
		{Type: "line", X: 0, Y: 0, X2: 10, Y2: 10, Color: "red"},
		{Type: "rect", X: 1, Y: 2, Width: 3, Height: 4, Filled: true},
		{Type: "circle", X: 8, Y: 8, Radius: 4, Filled: true, Color: "blue"},
		{Type: "emoji", X: 0, Y: 0, Emoji: "\U0001F600"},
		{Type: "update"},
	})
	if err != nil {
		t.Fatalf("BuildDrawCommands: %v", err)
	}
	if len(cmds) != 7 {
		t.Fatalf("got %d commands, want 7", len(cmds))
	}

	if txt, ok := cmds[1].(protocol.Text); !ok || txt.Text != "hi" || txt.Size != protocol.SizeSmall {
		t.Errorf("text command = %#v", cmds[1])
	}
	if em, ok := cmds[5].(protocol.Emoji); !ok || em.Code != 0x1F600 {
		t.Errorf("emoji command = %#v", cmds[5])
	}
	if _, ok := cmds[6].(protocol.Update); !ok {
		t.Errorf("update command = %#v", cmds[6])
	}
}

func TestBuildDrawCommandsLineDefaultWidth(t *testing.T) {
	cmds, err := BuildDrawCommands([]models.DrawCommand{
		{Type: "line", X2: 5, Y2: 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	if line := cmds[0].(protocol.Line); line.Width != 1 {
		t.Errorf("line width = %d, want default 1", line.Width)
	}
}

func TestBuildDrawCommandsErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  models.DrawCommand
	}{
		{"unknown type", models.DrawCommand{Type: "polygon"}},
		{"text without text", models.DrawCommand{Type: "text"}},
		{"emoji without emoji", models.DrawCommand{Type: "emoji"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildDrawCommands([]models.DrawCommand{tt.cmd}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestClampCoord(t *testing.T) {
	if clampCoord(-1) != 0 || clampCoord(256) != 255 || clampCoord(100) != 100 {
		t.Error("clampCoord bounds are wrong")
	}
}
