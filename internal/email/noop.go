package email

import "context"

// NoopSender discards every message. Used in tests and in local setups
// where no email credential is configured but the full pipeline should
// still be exercisable.
type NoopSender struct{}

func (NoopSender) Send(_ context.Context, _, _, _ string, _ ...Attachment) error {
	return nil
}
