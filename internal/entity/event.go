package entity

import "context"

// Publisher prepares the JetStream streams it publishes to.
type Publisher interface {
	JetstreamEventInit(ctx context.Context) error
}

// Subscriber starts consuming its JetStream subjects.
type Subscriber interface {
	JetstreamEventSubscribe(ctx context.Context) error
}
