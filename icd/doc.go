// Package icd drives the X65 in-circuit debugger core over a Transport.
//
// # Overview
//
// A Session owns the transport and the routing of the shared SPI lines. The
// lines reach either the ICD core or the NORA configuration flash; the ICD
// chip select is asserted only for the duration of one command:
//
//	open -> idle -> { select, header, payload, deselect }* -> idle -> close
//
// # Basic Usage
//
//	t, err := mpsse.Open(mpsse.Config{Interface: 0})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s, err := icd.Open(ctx, t)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	if err := s.BusWrite(ctx, 0x000200, []byte{0xDE, 0xAD}); err != nil {
//	    log.Fatal(err)
//	}
//	data, err := s.BusRead(ctx, 0x000200, 2)
//
// # Chunking
//
// Transfers longer than MaxRequestSize are split into several commands, each
// carrying its own start address.
//
// # Error Handling
//
// A failing Transport is reported as *TransportError and breaks the session;
// all later calls return ErrSessionBroken. Argument errors leave the session
// usable:
//
//	if errors.Is(err, icd.ErrAddressRange) {
//	    // fix the request
//	}
//	if icd.IsTransportError(err) {
//	    // reopen the transport
//	}
//
// # Logging
//
// Provide a Logger to see session events:
//
//	s, err := icd.Open(ctx, t, icd.WithLogger(myLogger))
package icd
