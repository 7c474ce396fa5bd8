package app

import "pagemark/internal/logger"

type Lifecycle struct {
	logger     logger.Logger
	isShutdown bool
}

func NewLifecycle(log logger.Logger) *Lifecycle {
	return &Lifecycle{logger: log}
}

func (l *Lifecycle) Shutdown() {
	if l.isShutdown {
		return
	}
	l.isShutdown = true
	l.logger.Info("Lifecycle", "shutdown sequence completed", nil)
}
