package ports

import "context"

// EventPublisher notifies the rest of the platform about auth lifecycle
// events. Publishing is best-effort: failures are logged by callers and
// never fail the originating request.
type EventPublisher interface {
	PublishLogin(ctx context.Context, publicKey string) error
	PublishLogout(ctx context.Context, publicKey string) error
}
