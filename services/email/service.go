// Package emailsvc implements core.EmailService.
package emailsvc

import (
	"log"

	"github.com/trezcool/practicum/core"
)

// NewService prints emails in debug, and sends them through SendGrid otherwise.
func NewService(std *log.Logger, conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return NewConsoleService(std, conf)
	}
	return NewSendgridService(conf, logger)
}
