package speaker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mkaravel/go-voice-fleet/internal/platform"
	"github.com/mkaravel/go-voice-fleet/internal/worker"
)

func newOps(t *testing.T) *Ops {
	t.Helper()
	gw := platform.NewStaticGateway()
	gw.AddChannel("g1", "c1", platform.PermissionSet{Connect: true, Speak: true})
	return New(gw, zerolog.Nop())
}

func join(t *testing.T, o *Ops) {
	t.Helper()
	if _, err := o.Join(context.Background(), "g1", "c1"); err != nil {
		t.Fatal(err)
	}
}

func TestSpeakRequiresConnection(t *testing.T) {
	o := newOps(t)
	_, err := o.Speak(context.Background(), "g1", "hello", "")
	if !errors.Is(err, worker.ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestSpeakDefaultsLanguage(t *testing.T) {
	o := newOps(t)
	join(t, o)

	detail, err := o.Speak(context.Background(), "g1", "hello", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(detail, "in en") {
		t.Fatalf("detail = %q", detail)
	}
}

func TestSpeakAcceptsBCP47Tag(t *testing.T) {
	o := newOps(t)
	join(t, o)

	detail, err := o.Speak(context.Background(), "g1", "bonjour", "fr-FR")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(detail, "fr-FR") {
		t.Fatalf("detail = %q", detail)
	}
}

func TestSpeakRejectsMalformedTag(t *testing.T) {
	o := newOps(t)
	join(t, o)

	_, err := o.Speak(context.Background(), "g1", "hi", "not a tag!!")
	if !errors.Is(err, worker.ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "language tag") {
		t.Fatalf("err = %v", err)
	}
}

func TestSpeakMarksPlaying(t *testing.T) {
	o := newOps(t)
	join(t, o)

	if _, err := o.Speak(context.Background(), "g1", "hi", "en"); err != nil {
		t.Fatal(err)
	}
	st, _ := o.Status(context.Background(), "g1")
	if !st.Playing {
		t.Fatal("expected playing after speak")
	}
}
