package constants

const (
	// IDRandomBytes is the number of random bytes in generated entity IDs.
	IDRandomBytes = 16

	WSBroadcastBufferSize  = 256
	WSClientSendBufferSize = 64
)
