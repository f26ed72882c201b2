// Package transport implements the connectionless datagram transport used by
// the secureim login protocol.
//
// The client side is an unconnected UDP socket addressed to one server. Replies
// from any other source are dropped, and every receive is bounded by a timeout
// and a maximum size. A closed server port therefore shows up as a timeout,
// never as an early connection-refused error.
//
//	tr, err := transport.DialUDP("localhost:9999")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tr.Close()
//
//	if err := tr.Send([]byte(transport.LoginTag)); err != nil {
//	    log.Fatal(err)
//	}
//	cookie, err := tr.Receive(ctx, time.Second, limits.MaxCookieDatagram)
//	if errors.Is(err, transport.ErrTimeout) {
//	    // the server did not answer in time
//	}
//
// The server side is a UDPListener that reads datagrams from any address.
//
// # Framing
//
// Datagrams are textual: comma-separated fields, where binary values are
// base64 encoded before framing. JoinFrame and SplitFrame build and split
// frames; SplitFrame uses a bounded split so callers can detect surplus fields.
// After login, chat lines travel as MessageTag or IncomingTag followed by a
// body; EncodeMessage and DecodeIncoming add and strip the tags.
package transport
