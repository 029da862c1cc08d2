// Package pending implements the single-slot hand-off between the
// open_booking_form tool and the next render of the booking widget.
//
// The tool stages a validated reservation; the widget resource takes it
// (read and clear) when it renders, so the payload pre-fills exactly one
// form. MemoryStore serves a single process. RedisStore lets replicas behind
// a load balancer share the slot.
package pending
