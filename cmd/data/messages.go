package main

import (
	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/writer"
)

// PollStartedMsg signals that the provider client is ready and polling can
// begin. Recorder is nil unless quote capture is enabled.
type PollStartedMsg struct {
	Seq      int
	Client   provider.Provider
	Recorder writer.BarWriter
}

// QuotesMsg carries one round of quotes from the provider poll.
type QuotesMsg struct {
	Seq    int
	Quotes map[string]types.Bar
}

// PollErrorMsg reports a failed poll round.
type PollErrorMsg struct {
	Seq int
	Err error
}

// pollTickMsg arms the next poll round for the chain identified by Seq.
type pollTickMsg struct {
	Seq int
}
