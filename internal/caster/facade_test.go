package caster

import (
	"context"
	"testing"

	"github.com/jmylchreest/castwave/internal/config"
	"github.com/jmylchreest/castwave/internal/session"
)

func testFacade(t *testing.T) (*Facade, *session.Store) {
	t.Helper()
	store := session.New()
	cfg := config.Config{}
	return New(cfg, store, nil), store
}

func TestFacade_CastLoadMedia_RejectsInvalidDeviceIP(t *testing.T) {
	facade, _ := testFacade(t)

	_, err := facade.CastLoadMedia(context.Background(), LoadMediaRequest{
		DeviceIP:    "not-an-ip",
		URL:         "http://origin.example/video.mp4",
		ContentType: "video/mp4",
	})
	if err == nil {
		t.Fatal("expected an error for an invalid device_ip")
	}
}

func TestFacade_CastControl_UnsupportedAction(t *testing.T) {
	facade, _ := testFacade(t)

	_, err := facade.CastControl(context.Background(), "pause")
	if err != ErrUnsupportedAction {
		t.Fatalf("err = %v, want %v", err, ErrUnsupportedAction)
	}
}

func TestFacade_CastControl_StopWithoutActiveSession(t *testing.T) {
	facade, _ := testFacade(t)

	_, err := facade.CastControl(context.Background(), "stop")
	if err == nil || err.Error() != "No active cast connection" {
		t.Fatalf("err = %v, want %q", err, "No active cast connection")
	}
}

func TestFacade_GetProxyStatus_NotStartedThenPublished(t *testing.T) {
	facade, store := testFacade(t)

	if _, err := facade.GetProxyStatus(); err != ErrProxyNotStarted {
		t.Fatalf("err = %v, want %v", err, ErrProxyNotStarted)
	}

	store.PublishProxyAddress("192.0.2.5", 8090)

	addr, err := facade.GetProxyStatus()
	if err != nil {
		t.Fatalf("GetProxyStatus: %v", err)
	}
	if addr != "192.0.2.5:8090" {
		t.Errorf("addr = %q, want %q", addr, "192.0.2.5:8090")
	}
}
