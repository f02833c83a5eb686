package models

// SubscriptionKeys are the client-generated key material for one push
// registration: an ECDH P-256 public key (p256dh) and a 16-byte auth secret,
// both base64url encoded on the wire.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is a push-messaging registration tying this device to the
// backend's notification dispatch. At most one is active per device. It is
// created when the user opts in, sent to the backend, and destroyed on both
// sides on opt-out.
type Subscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}
