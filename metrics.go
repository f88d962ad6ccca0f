package neverliie

import "expvar"

// nodeMetrics record peer activity counters.
type nodeMetrics struct {
	envelopesRecv    expvar.Int
	envelopesSent    expvar.Int
	envelopesDropped expvar.Int
	callIn           expvar.Int // inbound unary calls received
	callInErr        expvar.Int // inbound unary calls resulting in ERROR
	callOut          expvar.Int // outbound unary calls initiated
	callOutErr       expvar.Int // outbound unary calls resulting in an error
	streamsStarted   expvar.Int // inbound streaming calls that emitted STREAM_START
	streamsActive    expvar.Int // inbound streams currently producing PROGRESS frames
	cancelIn         expvar.Int // cancellation requests received
	callsPending     expvar.Int // outbound unary calls awaiting a reply

	emap *expvar.Map
}

var rootMetrics = newNodeMetrics()

func newNodeMetrics() *nodeMetrics {
	nm := &nodeMetrics{emap: new(expvar.Map)}
	nm.emap.Set("envelopes_received", &nm.envelopesRecv)
	nm.emap.Set("envelopes_sent", &nm.envelopesSent)
	nm.emap.Set("envelopes_dropped", &nm.envelopesDropped)
	nm.emap.Set("calls_in", &nm.callIn)
	nm.emap.Set("calls_in_failed", &nm.callInErr)
	nm.emap.Set("calls_out", &nm.callOut)
	nm.emap.Set("calls_out_failed", &nm.callOutErr)
	nm.emap.Set("streams_started", &nm.streamsStarted)
	nm.emap.Set("streams_active", &nm.streamsActive)
	nm.emap.Set("cancels_in", &nm.cancelIn)
	nm.emap.Set("calls_pending", &nm.callsPending)
	return nm
}
