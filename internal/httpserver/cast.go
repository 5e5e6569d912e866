package httpserver

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/castwave/internal/cast"
	"github.com/jmylchreest/castwave/internal/caster"
)

// CastHandler exposes the command facade's four operations as a small
// Huma-described JSON API for the desktop shell to drive.
type CastHandler struct {
	facade *caster.Facade
}

// NewCastHandler creates a new CastHandler wrapping facade.
func NewCastHandler(facade *caster.Facade) *CastHandler {
	return &CastHandler{facade: facade}
}

// Register registers the cast routes with the Huma API.
func (h *CastHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "castDiscover",
		Method:      "GET",
		Path:        "/api/v1/cast/discover",
		Summary:     "Discover Cast receivers",
		Description: "Browses the LAN for Google Cast receivers over mDNS",
		Tags:        []string{"Cast"},
	}, h.Discover)

	huma.Register(api, huma.Operation{
		OperationID: "castLoadMedia",
		Method:      "POST",
		Path:        "/api/v1/cast/load",
		Summary:     "Load media on a Cast receiver",
		Description: "Connects to a receiver, launches or adopts the media receiver app, and loads media through the proxy",
		Tags:        []string{"Cast"},
	}, h.LoadMedia)

	huma.Register(api, huma.Operation{
		OperationID: "castControl",
		Method:      "POST",
		Path:        "/api/v1/cast/control",
		Summary:     "Control the active Cast session",
		Description: "Only the stop action is implemented",
		Tags:        []string{"Cast"},
	}, h.Control)

	huma.Register(api, huma.Operation{
		OperationID: "getProxyStatus",
		Method:      "GET",
		Path:        "/api/v1/proxy/status",
		Summary:     "Get the media proxy's listening address",
		Tags:        []string{"Cast"},
	}, h.ProxyStatus)
}

// DiscoverOutput is the response body for castDiscover.
type DiscoverOutput struct {
	Body struct {
		Devices []caster.DiscoveredDevice `json:"devices"`
	}
}

// Discover browses for Cast receivers.
func (h *CastHandler) Discover(ctx context.Context, _ *struct{}) (*DiscoverOutput, error) {
	devices, err := h.facade.CastDiscover(ctx)
	if err != nil {
		return nil, huma.Error503ServiceUnavailable("mDNS discovery failed", err)
	}
	out := &DiscoverOutput{}
	out.Body.Devices = devices
	return out, nil
}

// SubtitleTrackInput mirrors cast.SubtitleTrack for JSON binding.
type SubtitleTrackInput struct {
	URL      string `json:"url"`
	Language string `json:"language,omitempty"`
	Label    string `json:"label,omitempty"`
}

// LoadMediaInput is the request body for castLoadMedia.
type LoadMediaInput struct {
	Body struct {
		DeviceIP    string               `json:"device_ip" doc:"IPv4 address of the target Cast receiver"`
		URL         string               `json:"url" doc:"Origin media URL to cast"`
		ContentType string               `json:"content_type"`
		Headers     map[string]string    `json:"headers,omitempty"`
		Subtitles   []SubtitleTrackInput `json:"subtitles,omitempty"`
	}
}

// ResultOutput wraps a single opaque success string, used by both
// castLoadMedia and castControl.
type ResultOutput struct {
	Body struct {
		Result string `json:"result"`
	}
}

// LoadMedia loads the given media URL onto the given receiver.
func (h *CastHandler) LoadMedia(ctx context.Context, in *LoadMediaInput) (*ResultOutput, error) {
	subs := make([]cast.SubtitleTrack, len(in.Body.Subtitles))
	for i, s := range in.Body.Subtitles {
		subs[i] = cast.SubtitleTrack{URL: s.URL, Language: s.Language, Label: s.Label}
	}

	result, err := h.facade.CastLoadMedia(ctx, caster.LoadMediaRequest{
		DeviceIP:    in.Body.DeviceIP,
		URL:         in.Body.URL,
		ContentType: in.Body.ContentType,
		Headers:     in.Body.Headers,
		Subtitles:   subs,
	})
	if err != nil {
		if errors.Is(err, cast.ErrProxyNotReady) {
			return nil, huma.Error409Conflict(err.Error())
		}
		return nil, huma.Error503ServiceUnavailable("load media failed", err)
	}

	out := &ResultOutput{}
	out.Body.Result = result
	return out, nil
}

// ControlInput is the request body for castControl.
type ControlInput struct {
	Body struct {
		Action string `json:"action" doc:"Only \"stop\" is currently implemented"`
	}
}

// Control executes a control action against the active session.
func (h *CastHandler) Control(ctx context.Context, in *ControlInput) (*ResultOutput, error) {
	result, err := h.facade.CastControl(ctx, in.Body.Action)
	if err != nil {
		if errors.Is(err, caster.ErrUnsupportedAction) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return nil, huma.Error409Conflict(err.Error())
	}

	out := &ResultOutput{}
	out.Body.Result = result
	return out, nil
}

// ProxyStatusOutput is the response body for getProxyStatus.
type ProxyStatusOutput struct {
	Body struct {
		Address string `json:"address"`
	}
}

// ProxyStatus returns the proxy's published listening address.
func (h *CastHandler) ProxyStatus(_ context.Context, _ *struct{}) (*ProxyStatusOutput, error) {
	addr, err := h.facade.GetProxyStatus()
	if err != nil {
		return nil, huma.Error409Conflict(err.Error())
	}

	out := &ProxyStatusOutput{}
	out.Body.Address = addr
	return out, nil
}
