package main

import (
	"context"
	"log/slog"

	"github.com/fairyhunter13/redisqueue/domain"
)

// loggingHandler is the demo's job handler: it logs the payload and marks
// the document DONE. A real embedder supplies its own domain.Handler.
//
// q is wired in after queue.New returns, since the queue's own SetState is
// how this demo handler reports completion and the handler must already
// exist to build the queue's Config.
type loggingHandler struct {
	q   stateSetter
	log *slog.Logger
}

type stateSetter interface {
	SetState(ctx context.Context, id string, state domain.State, info string) error
}

func (h *loggingHandler) Execute(ctx context.Context, doc JobDoc) error {
	h.log.Info("executing job", slog.String("id", doc.ID()), slog.String("payload", doc.Payload))
	return h.q.SetState(ctx, doc.ID(), domain.StateDone, "")
}
