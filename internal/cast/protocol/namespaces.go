package protocol

// Namespace constants are the four virtual channels castwave speaks on,
// the real publicly documented Cast v2 namespace strings.
const (
	NamespaceConnection = "urn:x-cast:com.google.cast.tp.connection"
	NamespaceHeartbeat  = "urn:x-cast:com.google.cast.tp.heartbeat"
	NamespaceReceiver   = "urn:x-cast:com.google.cast.receiver"
	NamespaceMedia      = "urn:x-cast:com.google.cast.media"
)

// DefaultMediaReceiverAppID is the app id of Google's default media
// receiver, the app castwave launches or adopts to play back media.
const DefaultMediaReceiverAppID = "CC1AD845"

// Virtual source/destination ids used to address the platform vs. an app
// transport on the receiver.
const (
	SenderID   = "sender-0"
	ReceiverID = "receiver-0"
)
