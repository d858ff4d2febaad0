package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestBotTypeNamesRoundTrip(t *testing.T) {
	for _, bt := range AllBotTypes {
		got, err := ParseBotType(bt.String())
		if err != nil {
			t.Fatalf("ParseBotType(%q): %v", bt.String(), err)
		}
		if got != bt {
			t.Fatalf("ParseBotType(%q) = %v; want %v", bt.String(), got, bt)
		}
	}
}

func TestParseBotTypeNormalizes(t *testing.T) {
	got, err := ParseBotType("  SPEAKER ")
	if err != nil {
		t.Fatalf("ParseBotType: %v", err)
	}
	if got != BotSpeaker {
		t.Fatalf("ParseBotType = %v; want BotSpeaker", got)
	}
	if _, err := ParseBotType("dj"); err == nil {
		t.Fatal("expected error for unknown bot type")
	}
}

func TestBotTypeJSON(t *testing.T) {
	b, err := json.Marshal(BotSoundboard)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"soundboard"` {
		t.Fatalf("marshal = %s; want %q", b, "soundboard")
	}
	var bt BotType
	if err := json.Unmarshal([]byte(`"music"`), &bt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if bt != BotMusic {
		t.Fatalf("unmarshal = %v; want BotMusic", bt)
	}
}

func TestEnvelopeValidate(t *testing.T) {
	if err := (Envelope{GuildID: "g1"}).Validate(); !errors.Is(err, ErrMissingRequestID) {
		t.Fatalf("missing requestId: got %v; want ErrMissingRequestID", err)
	}
	if err := (Envelope{RequestID: "r1"}).Validate(); !errors.Is(err, ErrMissingGuildID) {
		t.Fatalf("missing guildId: got %v; want ErrMissingGuildID", err)
	}
	if err := (Envelope{RequestID: "r1", GuildID: "g1"}).Validate(); err != nil {
		t.Fatalf("complete envelope: %v", err)
	}
}

func TestRequestValidation(t *testing.T) {
	env := Envelope{RequestID: "r1", GuildID: "g1"}

	cases := []struct {
		name string
		req  interface{ Validate() error }
		want string // substring of the error; empty means valid
	}{
		{"join ok", JoinRequest{Envelope: env, ChannelID: "c1"}, ""},
		{"join missing channel", JoinRequest{Envelope: env, ChannelID: "  "}, "channelId"},
		{"volume ok", VolumeRequest{Envelope: env, Volume: 0.5}, ""},
		{"volume zero ok", VolumeRequest{Envelope: env, Volume: 0}, ""},
		{"volume too high", VolumeRequest{Envelope: env, Volume: 1.5}, "between 0.0 and 1.0"},
		{"volume negative", VolumeRequest{Envelope: env, Volume: -0.1}, "between 0.0 and 1.0"},
		{"enqueue missing track", EnqueueRequest{Envelope: env}, "track"},
		{"speak missing text", SpeakRequest{Envelope: env, Lang: "en"}, "text"},
		{"sound missing name", PlaySoundRequest{Envelope: env}, "sound"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("Validate() = %v; want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v; want error containing %q", err, tc.want)
			}
		})
	}
}

func TestVolumeOutOfRangeIsSentinel(t *testing.T) {
	err := VolumeRequest{Envelope: Envelope{RequestID: "r1", GuildID: "g1"}, Volume: 2}.Validate()
	if !errors.Is(err, ErrVolumeOutOfRange) {
		t.Fatalf("got %v; want ErrVolumeOutOfRange", err)
	}
}

func TestVoiceSessionActive(t *testing.T) {
	var nilSession *VoiceSession
	if nilSession.Active() {
		t.Fatal("nil session should not be active")
	}
	if (&VoiceSession{GuildID: "g1"}).Active() {
		t.Fatal("session without channel should not be active")
	}
	if !(&VoiceSession{GuildID: "g1", ActiveChannelID: "c1"}).Active() {
		t.Fatal("session with channel should be active")
	}
}

func TestChannelResolutionConstructors(t *testing.T) {
	if r := ResolvedChannel("c1"); !r.OK() || r.ActiveChannelID != "" {
		t.Fatalf("ResolvedChannel = %+v; want OK without session annotation", r)
	}
	if r := ResolvedFromSession("c2"); !r.OK() || r.ActiveChannelID != "c2" {
		t.Fatalf("ResolvedFromSession = %+v; want OK with session annotation", r)
	}
	if r := ResolutionFailure(ResolveErrNoChannel, "join a voice channel first"); r.OK() || r.ErrCode != ResolveErrNoChannel {
		t.Fatalf("ResolutionFailure = %+v; want error code %q", r, ResolveErrNoChannel)
	}
}
