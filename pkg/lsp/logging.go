package lsp

import (
	"github.com/rs/zerolog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var _ zerolog.Hook = &LogMessageHook{}

// LogMessageHook forwards log messages to the client as window/logMessage
// notifications. Messages logged before the first request are dropped.
type LogMessageHook struct {
	server *Server
}

func (h *LogMessageHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if msg == "" || level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}
	h.server.send(protocol.ServerWindowLogMessage, protocol.LogMessageParams{
		Type:    messageTypeFromZerolog(level),
		Message: msg,
	})
}

func messageTypeFromZerolog(level zerolog.Level) protocol.MessageType {
	switch level {
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return protocol.MessageTypeError
	case zerolog.WarnLevel:
		return protocol.MessageTypeWarning
	case zerolog.InfoLevel:
		return protocol.MessageTypeInfo
	default:
		return protocol.MessageTypeLog
	}
}
