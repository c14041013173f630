package printer

import (
	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/internal/session"
	"github.com/funnyzak/reqloop/pkg/i18n"
	"github.com/funnyzak/reqloop/pkg/request"
)

// Printer 抽象输出接口
type Printer interface {
	session.Emitter
	PrintRuns(runs []*request.RunRecord, total int) error
}

// New 创建指定模式的 Printer
func New(mode string, log logger.Logger, cfg *config.OutputConfig, translator *i18n.Translator, locale string) Printer {
	if cfg == nil {
		cfg = &config.OutputConfig{}
	}
	switch mode {
	case "json":
		return NewJSONPrinter(log)
	default:
		return NewConsolePrinter(log, &cfg.BodyView, translator, locale)
	}
}
