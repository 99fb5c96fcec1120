package main

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// glogLogger adapts glog to the key/value Logger of the library packages.
type glogLogger struct{}

func (glogLogger) Debug(msg string, keysAndValues ...interface{}) {
	glog.V(1).Infoln(msg + formatKV(keysAndValues))
}

func (glogLogger) Info(msg string, keysAndValues ...interface{}) {
	glog.Infoln(msg + formatKV(keysAndValues))
}

func (glogLogger) Error(msg string, keysAndValues ...interface{}) {
	glog.Errorln(msg + formatKV(keysAndValues))
}

// formatKV renders alternating keys and values as " k=v k=v". A trailing
// key without value is printed alone.
func formatKV(kv []interface{}) string {
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		b.WriteByte(' ')
		if i+1 == len(kv) {
			fmt.Fprint(&b, kv[i])
			break
		}
		fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
	}
	return b.String()
}
