package soundboard

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mkaravel/go-voice-fleet/internal/platform"
	"github.com/mkaravel/go-voice-fleet/internal/worker"
)

func newOps(t *testing.T, sounds ...string) *Ops {
	t.Helper()
	gw := platform.NewStaticGateway()
	gw.AddChannel("g1", "c1", platform.PermissionSet{Connect: true, Speak: true})
	return New(gw, sounds, zerolog.Nop())
}

func join(t *testing.T, o *Ops) {
	t.Helper()
	if _, err := o.Join(context.Background(), "g1", "c1"); err != nil {
		t.Fatal(err)
	}
}

func TestPlaySoundRequiresConnection(t *testing.T) {
	o := newOps(t, "airhorn")
	_, err := o.PlaySound(context.Background(), "g1", "airhorn")
	if !errors.Is(err, worker.ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestPlayKnownSound(t *testing.T) {
	o := newOps(t, "airhorn", "drumroll")
	join(t, o)

	detail, err := o.PlaySound(context.Background(), "g1", "airhorn")
	if err != nil {
		t.Fatal(err)
	}
	if detail != "playing airhorn" {
		t.Fatalf("detail = %q", detail)
	}
	st, _ := o.Status(context.Background(), "g1")
	if !st.Playing {
		t.Fatal("expected playing after play-sound")
	}
}

func TestPlayUnknownSound(t *testing.T) {
	o := newOps(t, "airhorn")
	join(t, o)

	_, err := o.PlaySound(context.Background(), "g1", "kazoo")
	if !errors.Is(err, worker.ErrSoundNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestCatalogListingAndRuntimeAdd(t *testing.T) {
	o := newOps(t, "drumroll", "airhorn")
	if got := o.Sounds(); !reflect.DeepEqual(got, []string{"airhorn", "drumroll"}) {
		t.Fatalf("sounds = %v", got)
	}

	o.AddSound("kazoo")
	join(t, o)
	if _, err := o.PlaySound(context.Background(), "g1", "kazoo"); err != nil {
		t.Fatal(err)
	}
}
