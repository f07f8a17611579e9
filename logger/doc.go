// Package logger provides structured logging for serverkit applications
// using zerolog.
//
// A Pipeline fans every record out to up to three sinks, each with its own
// minimum level: a console sink, a rotating file sink written through a
// non-blocking diode, and a telemetry sink that attaches records to the
// active OpenTelemetry span as span events.
//
// # Configuration
//
//	log_level: debug          # console sink
//	log_file_level: info      # file sink under ./logs
//	log_rolling: daily        # never | daily | hourly | minutely
//	log_rolling_max_files: 5
//
// # Usage
//
//	p, err := logger.Build(ctx, cfg)
//	if err != nil { ... }
//	if err := p.Install(); err != nil { ... }
//	defer p.Guard().Release()
//
//	logger.Info("listening", logger.Fields("addr", addr))
package logger
