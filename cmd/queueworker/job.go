package main

// JobDoc is the concrete domain.Document used by the queueworker demo: a
// bare id plus an opaque string payload, enough to exercise push/run/stats
// without inventing a business domain the spec never names.
type JobDoc struct {
	IDValue string `json:"id"`
	Payload string `json:"payload"`
}

func (j JobDoc) ID() string { return j.IDValue }
