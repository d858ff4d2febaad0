package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
	"github.com/mkaravel/go-voice-fleet/internal/platform"
)

type fakeSessions struct {
	session *domain.VoiceSession
	sessErr error
	last    map[string]string
	lastErr error
}

func (f *fakeSessions) GetSession(context.Context, string) (*domain.VoiceSession, error) {
	return f.session, f.sessErr
}

func (f *fakeSessions) LastChannel(_ context.Context, _, userID string) (string, error) {
	if f.lastErr != nil {
		return "", f.lastErr
	}
	return f.last[userID], nil
}

func newResolver(gw platform.VoiceGateway, sessions *fakeSessions) *Resolver {
	return New(gw, sessions, zerolog.Nop())
}

func TestPresenceWinsOverSession(t *testing.T) {
	gw := platform.NewStaticGateway()
	gw.AddChannel("g1", "c2", platform.PermissionSet{Connect: true, Speak: true})
	gw.AddChannel("g1", "c3", platform.PermissionSet{Connect: true, Speak: true})
	gw.SetUserChannel("g1", "u1", "c2")

	sessions := &fakeSessions{session: &domain.VoiceSession{GuildID: "g1", ActiveChannelID: "c3"}}

	res := newResolver(gw, sessions).ResolveTargetChannel(context.Background(), "g1", "u1")
	if !res.OK() {
		t.Fatalf("resolution failed: %+v", res)
	}
	if res.ChannelID != "c2" {
		t.Fatalf("ChannelID = %q, want c2", res.ChannelID)
	}
	if res.ActiveChannelID != "" {
		t.Fatalf("presence result should not carry ActiveChannelID, got %q", res.ActiveChannelID)
	}
}

func TestSessionFallbackIsFlagged(t *testing.T) {
	gw := platform.NewStaticGateway()
	gw.AddChannel("g1", "c5", platform.PermissionSet{Connect: true, Speak: true})

	sessions := &fakeSessions{session: &domain.VoiceSession{GuildID: "g1", ActiveChannelID: "c5"}}

	res := newResolver(gw, sessions).ResolveTargetChannel(context.Background(), "g1", "u1")
	if res.ChannelID != "c5" {
		t.Fatalf("ChannelID = %q, want c5", res.ChannelID)
	}
	if res.ActiveChannelID != "c5" {
		t.Fatalf("ActiveChannelID = %q, want c5", res.ActiveChannelID)
	}
}

func TestLastChannelUsedWhenJoinable(t *testing.T) {
	gw := platform.NewStaticGateway()
	gw.AddChannel("g1", "c9", platform.PermissionSet{Connect: true, Speak: true})

	sessions := &fakeSessions{last: map[string]string{"u1": "c9"}}

	res := newResolver(gw, sessions).ResolveTargetChannel(context.Background(), "g1", "u1")
	if res.ChannelID != "c9" {
		t.Fatalf("ChannelID = %q, want c9", res.ChannelID)
	}
	if res.ActiveChannelID != "" {
		t.Fatalf("last-channel result should not carry ActiveChannelID, got %q", res.ActiveChannelID)
	}
}

func TestLastChannelWithoutConnectIsSkipped(t *testing.T) {
	gw := platform.NewStaticGateway()
	gw.AddChannel("g1", "c9", platform.PermissionSet{Connect: false, Speak: true})

	sessions := &fakeSessions{last: map[string]string{"u1": "c9"}}

	res := newResolver(gw, sessions).ResolveTargetChannel(context.Background(), "g1", "u1")
	if res.OK() {
		t.Fatalf("expected failure, got channel %q", res.ChannelID)
	}
	if res.ErrCode != domain.ResolveErrNoChannel {
		t.Fatalf("ErrCode = %q, want %q", res.ErrCode, domain.ResolveErrNoChannel)
	}
	if res.Message != "join a voice channel first" {
		t.Fatalf("Message = %q", res.Message)
	}
}

func TestLastChannelWithoutSpeakIsSkipped(t *testing.T) {
	gw := platform.NewStaticGateway()
	gw.AddChannel("g1", "c9", platform.PermissionSet{Connect: true, Speak: false})

	sessions := &fakeSessions{last: map[string]string{"u1": "c9"}}

	res := newResolver(gw, sessions).ResolveTargetChannel(context.Background(), "g1", "u1")
	if res.ErrCode != domain.ResolveErrNoChannel {
		t.Fatalf("ErrCode = %q, want %q", res.ErrCode, domain.ResolveErrNoChannel)
	}
}

func TestDeletedLastChannelIsSkipped(t *testing.T) {
	gw := platform.NewStaticGateway()
	gw.AddChannel("g1", "other", platform.PermissionSet{Connect: true, Speak: true})

	sessions := &fakeSessions{last: map[string]string{"u1": "gone"}}

	res := newResolver(gw, sessions).ResolveTargetChannel(context.Background(), "g1", "u1")
	if res.ErrCode != domain.ResolveErrNoChannel {
		t.Fatalf("ErrCode = %q, want %q", res.ErrCode, domain.ResolveErrNoChannel)
	}
}

func TestNoCandidates(t *testing.T) {
	gw := platform.NewStaticGateway()
	sessions := &fakeSessions{}

	res := newResolver(gw, sessions).ResolveTargetChannel(context.Background(), "g1", "u1")
	if res.OK() {
		t.Fatalf("expected NO_CHANNEL, got %+v", res)
	}
	if res.ErrCode != domain.ResolveErrNoChannel {
		t.Fatalf("ErrCode = %q, want %q", res.ErrCode, domain.ResolveErrNoChannel)
	}
}

type erroringGateway struct {
	platform.VoiceGateway
}

func (erroringGateway) UserChannel(context.Context, string, string) (string, bool, error) {
	return "", false, errors.New("gateway unavailable")
}

func TestStoreErrorsDegradeToNextCandidate(t *testing.T) {
	gw := platform.NewStaticGateway()
	gw.AddChannel("g1", "c5", platform.PermissionSet{Connect: true, Speak: true})

	sessions := &fakeSessions{
		session: &domain.VoiceSession{GuildID: "g1", ActiveChannelID: "c5"},
		lastErr: errors.New("store down"),
	}

	res := newResolver(erroringGateway{gw}, sessions).ResolveTargetChannel(context.Background(), "g1", "u1")
	if res.ChannelID != "c5" {
		t.Fatalf("ChannelID = %q, want c5", res.ChannelID)
	}
}

func TestSessionErrorFallsThroughToLastChannel(t *testing.T) {
	gw := platform.NewStaticGateway()
	gw.AddChannel("g1", "c9", platform.PermissionSet{Connect: true, Speak: true})

	sessions := &fakeSessions{
		sessErr: errors.New("store down"),
		last:    map[string]string{"u1": "c9"},
	}

	res := newResolver(gw, sessions).ResolveTargetChannel(context.Background(), "g1", "u1")
	if res.ChannelID != "c9" {
		t.Fatalf("ChannelID = %q, want c9", res.ChannelID)
	}
}
