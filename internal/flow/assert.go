package flow

import (
	"fmt"

	"go.uber.org/zap"
)

// strictInvariants turns consistency violations into panics. Set by the
// debug build tag.
var strictInvariants = false

func (m *Model) assertConsistent(ok bool, format string, args ...any) {
	if ok {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if strictInvariants {
		panic("flow: model consistency violation: " + msg)
	}
	m.logger.Error("model consistency violation", zap.String("detail", msg))
}
