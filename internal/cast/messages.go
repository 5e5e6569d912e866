package cast

// JSON payload shapes exchanged on the Cast v2 virtual channels. These
// mirror the publicly documented receiver/media/connection message types;
// only the fields castwave actually sends or reads are modeled.

type connectPayload struct {
	Type string `json:"type"`
}

type heartbeatPayload struct {
	Type string `json:"type"`
}

type getStatusRequest struct {
	Type      string `json:"type"`
	RequestID int    `json:"requestId"`
}

type launchRequest struct {
	Type      string `json:"type"`
	RequestID int    `json:"requestId"`
	AppID     string `json:"appId"`
}

type stopRequest struct {
	Type      string `json:"type"`
	RequestID int    `json:"requestId"`
	SessionID string `json:"sessionId"`
}

type application struct {
	AppID       string `json:"appId"`
	TransportID string `json:"transportId"`
	SessionID   string `json:"sessionId"`
}

type receiverStatusResponse struct {
	Type      string `json:"type"`
	RequestID int    `json:"requestId"`
	Status    struct {
		Applications []application `json:"applications"`
	} `json:"status"`
}

type mediaTrack struct {
	TrackID     int    `json:"trackId"`
	Type        string `json:"type"`
	Subtype     string `json:"subtype"`
	ContentID   string `json:"contentId"`
	ContentType string `json:"contentType"`
	Language    string `json:"language,omitempty"`
	Name        string `json:"name,omitempty"`
}

type mediaObject struct {
	ContentID   string       `json:"contentId"`
	StreamType  string       `json:"streamType"`
	ContentType string       `json:"contentType"`
	Tracks      []mediaTrack `json:"tracks,omitempty"`
}

type loadRequest struct {
	Type           string      `json:"type"`
	RequestID      int         `json:"requestId"`
	SessionID      string      `json:"sessionId"`
	Media          mediaObject `json:"media"`
	ActiveTrackIDs []int       `json:"activeTrackIds,omitempty"`
}

// genericResponse is used to sniff a response's "type" field before
// unmarshaling into the shape that type implies.
type genericResponse struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

const (
	typeConnect        = "CONNECT"
	typePing           = "PING"
	typePong           = "PONG"
	typeGetStatus      = "GET_STATUS"
	typeLaunch         = "LAUNCH"
	typeStop           = "STOP"
	typeLoad           = "LOAD"
	typeReceiverStatus = "RECEIVER_STATUS"
	typeMediaStatus    = "MEDIA_STATUS"
	typeLoadFailed     = "LOAD_FAILED"
	typeLoadCancelled  = "LOAD_CANCELLED"
)
