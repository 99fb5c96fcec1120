package icd

// Logger receives the diagnostics of a Session: bus routing changes, broken
// sessions and polling. The memtest and trace packages take the same
// interface, so one adapter serves a whole debugging run. Keys and values
// alternate, as in "addr", 0x0102AA.
//
// The x65icd command feeds glog through it:
//
//	type glogLogger struct{}
//	func (glogLogger) Debug(msg string, kv ...interface{}) { glog.V(1).Infoln(msg, kv) }
//	func (glogLogger) Info(msg string, kv ...interface{})  { glog.Infoln(msg, kv) }
//	func (glogLogger) Error(msg string, kv ...interface{}) { glog.Errorln(msg, kv) }
//
//	s, err := icd.Open(ctx, bridge, icd.WithLogger(glogLogger{}))
//	...
//	ctl := trace.NewController(s, trace.WithLogger(glogLogger{}))
type Logger interface {
	// Debug reports session and polling detail, such as a status poll timeout
	Debug(msg string, keysAndValues ...interface{})

	// Info reports state changes a user wants to see, such as CPU run/stop
	Info(msg string, keysAndValues ...interface{})

	// Error reports failures that break the session or a test
	Error(msg string, keysAndValues ...interface{})
}
