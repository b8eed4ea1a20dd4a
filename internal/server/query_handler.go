// Package server implements the UDP transport around the responder.
package server

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	"github.com/ip4live/checkipdns/internal/querylog"
	"github.com/ip4live/checkipdns/internal/responder"
)

// QueryHandler processes one datagram: decode, decide, encode, account.
type QueryHandler struct {
	Logger    *slog.Logger         // Optional logger for debug output
	Responder *responder.Responder // The response policy
	Stats     *DNSStats            // Optional statistics collector
	QueryLog  *querylog.Log        // Optional persistent query log
}

// Handle runs the responder on a request datagram and returns the reply
// bytes, or nil when the datagram must be dropped (malformed framing, or
// a source address that cannot be answered). Dropping is deliberate: a
// query that cannot be decoded has no trustworthy transaction id to echo.
func (h *QueryHandler) Handle(ctx context.Context, src netip.AddrPort, req []byte) []byte {
	start := time.Now()

	res, err := h.Responder.Respond(req, src.Addr().Unmap())
	if err != nil {
		h.Stats.RecordDropped()
		h.QueryLog.Record(querylog.Entry{
			Time:       start,
			ClientIP:   src.Addr().Unmap().String(),
			ClientPort: int(src.Port()),
			Variant:    "dropped",
		})
		if h.Logger != nil {
			h.Logger.Debug("dropped datagram", "src", src.String(), "bytes", len(req), "err", err)
		}
		return nil
	}

	h.Stats.RecordVariant(res.Variant)
	h.Stats.RecordLatency(time.Since(start).Nanoseconds())

	qname, qtype := questionInfo(&res)
	h.QueryLog.Record(querylog.Entry{
		Time:       start,
		ClientIP:   src.Addr().Unmap().String(),
		ClientPort: int(src.Port()),
		ID:         res.Query.Header.ID,
		QName:      qname,
		QType:      qtype,
		Variant:    res.Variant.String(),
		RCode:      res.Variant.RCode(),
		Answered:   res.Variant == responder.VariantAnswer,
	})

	h.logRequest(ctx, src, req, &res, qname, qtype)
	return res.ResponseBytes
}

// questionInfo extracts the first question's name and type, if any.
func questionInfo(res *responder.Result) (qname string, qtype uint16) {
	if len(res.Query.Questions) > 0 {
		return res.Query.Questions[0].Name, res.Query.Questions[0].Type
	}
	return "<no-question>", 0
}

func (h *QueryHandler) logRequest(ctx context.Context, src netip.AddrPort, req []byte, res *responder.Result, qname string, qtype uint16) {
	if h.Logger == nil || !h.Logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	h.Logger.Debug(
		"dns request",
		"src", src.String(),
		"id", int(res.Query.Header.ID),
		"qname", qname,
		"qtype", int(qtype),
		"bytes", len(req),
		"variant", res.Variant.String(),
	)
}
