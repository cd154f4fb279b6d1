package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ EventHandler    = (*Service)(nil)
	_ Clock           = ClockFunc(nil)
	_ MetricsRecorder = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
