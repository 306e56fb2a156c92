package discord

import (
	"reflect"
	"testing"
)

func TestParseIDs(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"<@&111> <@222>, 333", []string{"111", "222", "333"}},
		{"<@!444>", []string{"444"}},
		{"abc 12x", []string{}},
		{"", []string{}},
	}
	for _, c := range cases {
		if got := parseIDs(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("parseIDs(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestPageArg(t *testing.T) {
	for in, want := range map[string]int{"3": 3, "": 1, "-2": 1, "x": 1, "0": 1} {
		if got := pageArg(in); got != want {
			t.Errorf("pageArg(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseEmojiOverrides(t *testing.T) {
	got, bad := parseEmojiOverrides("skip:<:skipper:123>, stop:⏹️, pause:<a:spin:456>, nope:<:x:1>, loop:<bad>, garbage")
	if len(bad) != 3 {
		t.Errorf("bad = %v, want 3 entries", bad)
	}
	if e := got["skip"]; e == nil || e.Name != "skipper" || e.ID != "123" || e.Animated {
		t.Errorf("skip = %+v", e)
	}
	if e := got["pause"]; e == nil || !e.Animated || e.ID != "456" {
		t.Errorf("pause = %+v", e)
	}
	if e := got["stop"]; e == nil || e.Name != "⏹️" || e.ID != "" {
		t.Errorf("stop = %+v", e)
	}
	if _, ok := got["loop"]; ok {
		t.Error("malformed loop override accepted")
	}

	if m, bad := parseEmojiOverrides("  "); len(m) != 0 || bad != nil {
		t.Errorf("empty input = %v, %v", m, bad)
	}
}

func TestMentionRoles(t *testing.T) {
	if got := mentionRoles(nil); got != "-" {
		t.Errorf("mentionRoles(nil) = %q", got)
	}
	if got := mentionRoles([]string{"1", "2"}); got != "<@&1> <@&2>" {
		t.Errorf("mentionRoles = %q", got)
	}
}
