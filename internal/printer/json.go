package printer

import (
	"encoding/json"
	"io"
	"os"

	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/internal/session"
	"github.com/funnyzak/reqloop/pkg/request"
)

// JSONPrinter 以 JSON 行输出事件
type JSONPrinter struct {
	encoder *json.Encoder
	logger  logger.Logger
	out     io.Writer
}

// NewJSONPrinter 创建 JSON 输出器
func NewJSONPrinter(log logger.Logger) *JSONPrinter {
	if log == nil {
		log = logger.Nop()
	}
	p := &JSONPrinter{logger: log}
	p.SetOutput(os.Stdout)
	return p
}

// SetOutput 替换输出目标，便于测试
func (p *JSONPrinter) SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	p.out = w
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	p.encoder = encoder
}

// Emit writes e as a single JSON line.
func (p *JSONPrinter) Emit(e session.Event) {
	if err := p.encoder.Encode(e); err != nil {
		p.logger.Error("Failed to encode event JSON", "event", e.EventName(), "error", err)
	}
}

type jsonRunsEnvelope struct {
	Type  string               `json:"type"`
	Total int                  `json:"total"`
	Runs  []*request.RunRecord `json:"runs"`
}

// PrintRuns 输出运行历史
func (p *JSONPrinter) PrintRuns(runs []*request.RunRecord, total int) error {
	if runs == nil {
		runs = []*request.RunRecord{}
	}
	env := jsonRunsEnvelope{Type: "runs", Total: total, Runs: runs}
	if err := p.encoder.Encode(env); err != nil {
		p.logger.Error("Failed to encode runs JSON", "error", err)
		return err
	}
	return nil
}
