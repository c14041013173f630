package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/internal/session"
	"github.com/funnyzak/reqloop/pkg/curl"
	"github.com/funnyzak/reqloop/pkg/i18n"
	"github.com/funnyzak/reqloop/pkg/request"
)

// ColorScheme color scheme
type ColorScheme struct {
	MethodGET    *color.Color
	MethodPOST   *color.Color
	MethodPUT    *color.Color
	MethodDELETE *color.Color
	MethodPATCH  *color.Color
	HeaderKey    *color.Color
	HeaderValue  *color.Color
	Separator    *color.Color
	Timestamp    *color.Color
	BodyContent  *color.Color
	Notice       *color.Color
	Query        *color.Color
	Success      *color.Color
	Failure      *color.Color
	Info         *color.Color
}

// NewColorScheme creates a new color scheme
func NewColorScheme() *ColorScheme {
	return &ColorScheme{
		MethodGET:    color.New(color.FgBlue, color.Bold),
		MethodPOST:   color.New(color.FgGreen, color.Bold),
		MethodPUT:    color.New(color.FgYellow, color.Bold),
		MethodDELETE: color.New(color.FgRed, color.Bold),
		MethodPATCH:  color.New(color.FgMagenta, color.Bold),
		HeaderKey:    color.New(color.FgCyan),
		HeaderValue:  color.New(color.FgWhite),
		Separator:    color.New(color.FgYellow, color.Bold),
		Timestamp:    color.New(color.FgHiBlack),
		BodyContent:  color.New(color.FgWhite),
		Notice:       color.New(color.FgHiYellow, color.Bold),
		Query:        color.New(color.FgHiMagenta),
		Success:      color.New(color.FgGreen, color.Bold),
		Failure:      color.New(color.FgRed, color.Bold),
		Info:         color.New(color.FgHiBlue, color.Bold),
	}
}

// ConsolePrinter renders session events for a terminal.
type ConsolePrinter struct {
	colorScheme *ColorScheme
	logger      logger.Logger
	out         io.Writer
	formatter   *bodyFormatter
	intl        *i18n.Translator
	locale      string

	// printed is the part of the loop output already written.
	printed string
}

// NewConsolePrinter creates a new console printer
func NewConsolePrinter(log logger.Logger, bodyCfg *config.BodyViewConfig, translator *i18n.Translator, locale string) *ConsolePrinter {
	if log == nil {
		log = logger.Nop()
	}
	return &ConsolePrinter{
		colorScheme: NewColorScheme(),
		logger:      log,
		out:         os.Stdout,
		formatter:   newBodyFormatter(bodyCfg, log, translator, locale),
		intl:        translator,
		locale:      locale,
	}
}

// SetOutput 替换输出目标，便于测试
func (p *ConsolePrinter) SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	p.out = w
}

func (p *ConsolePrinter) t(key string, args ...interface{}) string {
	if p.intl == nil {
		if len(args) == 0 {
			return key
		}
		return key + " " + fmt.Sprint(args...)
	}
	return p.intl.Textf(p.locale, key, args...)
}

// getTerminalWidth gets the current terminal width with fallback
func (p *ConsolePrinter) getTerminalWidth() int {
	if testWidth := os.Getenv("REQLOOP_TEST_WIDTH"); testWidth != "" {
		if width, err := strconv.Atoi(testWidth); err == nil {
			return clampWidth(width)
		}
	}

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return clampWidth(width)
}

func clampWidth(width int) int {
	switch {
	case width < 40:
		return 40
	case width > 150:
		return 150
	default:
		return width
	}
}

// Emit implements session.Emitter.
func (p *ConsolePrinter) Emit(e session.Event) {
	switch ev := e.(type) {
	case session.ParsedCurl:
		p.printParsed(ev.Text)
	case session.ReconstructedCurl:
		p.printTitle(p.t(keyReconstructedTitle))
		fmt.Fprintln(p.out, ev.Text)
		fmt.Fprintln(p.out)
	case session.ExecutionOutput:
		p.printOutput(ev)
	case session.LoopProgress:
		p.printProgress(ev)
	case session.LoopComplete:
		p.printComplete(ev)
	case session.Notification:
		c := p.colorScheme.Success
		if ev.Level == session.LevelError {
			c = p.colorScheme.Failure
		}
		c.Fprintln(p.out, ev.Text)
	default:
		p.logger.Debug("unhandled event", "event", e.EventName())
	}
}

func (p *ConsolePrinter) printTitle(title string) {
	separator := strings.Repeat("-", p.getTerminalWidth())
	p.colorScheme.Separator.Fprintln(p.out, separator)
	p.colorScheme.Separator.Fprintln(p.out, title)
	p.colorScheme.Separator.Fprintln(p.out, separator)
}

func (p *ConsolePrinter) printParsed(text string) {
	var payload curl.Payload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		p.logger.Debug("payload decode failed", "error", err)
		fmt.Fprintln(p.out, text)
		return
	}

	p.printTitle(p.t(keyParsedTitle))
	method := strings.ToUpper(payload.Method)
	p.getMethodColor(method).Fprintf(p.out, "%s ", method)
	fmt.Fprint(p.out, payload.URL)
	if payload.Query.Len() > 0 {
		fmt.Fprint(p.out, "?")
		p.colorScheme.Query.Fprint(p.out, payload.Query.Encode())
	}
	fmt.Fprintln(p.out)

	width := p.getTerminalWidth()
	for _, key := range payload.Headers.Keys() {
		value, _ := payload.Headers.Get(key)
		p.printHeaderLine(key, value, width)
	}
	if len(payload.Flags) > 0 {
		p.colorScheme.Timestamp.Fprintln(p.out, strings.Join(payload.Flags, " "))
	}
	if payload.RawBody != nil {
		fmt.Fprintln(p.out)
		p.printBody(*payload.RawBody)
	} else if payload.Data.Len() > 0 {
		fmt.Fprintln(p.out)
		for _, key := range payload.Data.Keys() {
			value, _ := payload.Data.Get(key)
			p.printHeaderLine(key, value, width)
		}
	}
	fmt.Fprintln(p.out)
}

func (p *ConsolePrinter) printHeaderLine(key, value string, width int) {
	prefix := key + ": "
	available := width - runewidth.StringWidth(prefix)
	if available < 20 {
		available = 20
	}

	wrapped := wrapText(value, available)
	p.colorScheme.HeaderKey.Fprint(p.out, prefix)
	p.colorScheme.HeaderValue.Fprintln(p.out, wrapped[0])

	indent := strings.Repeat(" ", runewidth.StringWidth(prefix))
	for _, line := range wrapped[1:] {
		fmt.Fprint(p.out, indent)
		p.colorScheme.HeaderValue.Fprintln(p.out, line)
	}
}

func (p *ConsolePrinter) printOutput(ev session.ExecutionOutput) {
	if ev.StatusLabel == "" && ev.Duration == nil {
		// Loop output is re-sent in full after every run.
		if p.printed != "" && strings.HasPrefix(ev.Text, p.printed) {
			p.printBody(strings.TrimPrefix(ev.Text, p.printed))
		} else {
			p.printBody(ev.Text)
		}
		p.printed = ev.Text
		return
	}

	p.printTitle(p.t(keyOutputTitle))
	status := "n/a"
	if ev.Status != nil {
		status = strconv.Itoa(*ev.Status)
	}
	fmt.Fprintf(p.out, "%s: ", p.t(keyOutputStatus))
	p.labelColor(ev.StatusLabel).Fprint(p.out, status)
	if ev.Duration != nil {
		fmt.Fprintf(p.out, " | %s: %s", p.t(keyOutputDuration), (time.Duration(*ev.Duration) * time.Millisecond).String())
	}
	fmt.Fprintf(p.out, " | %s: %s\n\n", p.t(keyOutputSize), humanize.Bytes(uint64(len(ev.Text))))
	p.printBody(ev.Text)
}

func (p *ConsolePrinter) printBody(text string) {
	if text == "" {
		p.colorScheme.BodyContent.Fprintln(p.out, p.t(keyOutputEmpty))
		return
	}
	if isBinaryText(text) {
		p.colorScheme.Notice.Fprintln(p.out, p.t(keyOutputBinary, humanize.Bytes(uint64(len(text)))))
		return
	}

	formatted := p.formatter.Format(text)
	for _, notice := range formatted.Notices {
		p.colorScheme.Notice.Fprintln(p.out, notice)
	}
	for _, line := range strings.Split(strings.TrimRight(formatted.Text, "\n"), "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if trimmed == "" {
			fmt.Fprintln(p.out)
			continue
		}
		p.colorScheme.BodyContent.Fprintln(p.out, trimmed)
	}
}

func (p *ConsolePrinter) printProgress(ev session.LoopProgress) {
	if ev.Current == 0 {
		p.printed = ""
		p.printTitle(p.t(keyLoopStarted, ev.Total))
		return
	}
	status := "n/a"
	c := p.colorScheme.Notice
	if ev.Status != nil {
		status = strconv.Itoa(*ev.Status)
		c = p.statusColor(*ev.Status)
	}
	p.colorScheme.Timestamp.Fprintf(p.out, "[%s] ", p.t(keyLoopProgress, ev.Current, ev.Total))
	c.Fprintln(p.out, status)
}

func (p *ConsolePrinter) printComplete(ev session.LoopComplete) {
	p.printed = ""
	if ev.Error != "" {
		p.colorScheme.Failure.Fprintln(p.out, p.t(keyLoopFailed, ev.Error))
		return
	}
	separator := strings.Repeat("-", p.getTerminalWidth())
	p.colorScheme.Separator.Fprintln(p.out, separator)
	c := p.colorScheme.Success
	if ev.FailureCount > 0 {
		c = p.colorScheme.Failure
	}
	c.Fprintln(p.out, p.t(keyLoopComplete, ev.Total, ev.SuccessCount, ev.FailureCount))
	fmt.Fprintf(p.out, "%s: %s\n", p.t(keyLoopSummary), ev.StatusSummary)
}

// PrintRuns renders run history as a table.
func (p *ConsolePrinter) PrintRuns(runs []*request.RunRecord, total int) error {
	if len(runs) == 0 {
		fmt.Fprintln(p.out, p.t(keyHistoryEmpty))
		return nil
	}

	const (
		timeWidth     = 19
		statusWidth   = 6
		methodWidth   = 7
		durationWidth = 9
	)
	urlWidth := p.getTerminalWidth() - timeWidth - statusWidth - methodWidth - durationWidth - 8
	if urlWidth < 16 {
		urlWidth = 16
	}

	header := strings.Join([]string{
		runewidth.FillRight(p.t(keyHistoryTime), timeWidth),
		runewidth.FillRight(p.t(keyHistoryStatus), statusWidth),
		runewidth.FillRight(p.t(keyHistoryMethod), methodWidth),
		runewidth.FillRight(p.t(keyHistoryDuration), durationWidth),
		p.t(keyHistoryURL),
	}, "  ")
	p.colorScheme.Separator.Fprintln(p.out, header)

	for _, run := range runs {
		target := run.URL
		if target == "" {
			target = run.Command
		}
		fmt.Fprint(p.out, runewidth.FillRight(run.Timestamp.Local().Format("2006-01-02 15:04:05"), timeWidth)+"  ")
		p.labelColor(run.Label).Fprint(p.out, runewidth.FillRight(run.StatusText(), statusWidth))
		fmt.Fprint(p.out, "  ")
		method := strings.ToUpper(run.Method)
		p.getMethodColor(method).Fprint(p.out, runewidth.FillRight(method, methodWidth))
		fmt.Fprint(p.out, "  ")
		fmt.Fprint(p.out, runewidth.FillRight(fmt.Sprintf("%dms", run.DurationMs), durationWidth)+"  ")
		fmt.Fprintln(p.out, runewidth.Truncate(target, urlWidth, "..."))
	}
	p.colorScheme.Timestamp.Fprintln(p.out, p.t(keyHistoryTotal, len(runs), total))
	return nil
}

func (p *ConsolePrinter) labelColor(label string) *color.Color {
	switch label {
	case "success":
		return p.colorScheme.Success
	case "error":
		return p.colorScheme.Failure
	default:
		return p.colorScheme.Info
	}
}

func (p *ConsolePrinter) statusColor(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return p.colorScheme.Success
	case code >= 400:
		return p.colorScheme.Failure
	default:
		return p.colorScheme.Info
	}
}

// getMethodColor gets the corresponding color based on HTTP method
func (p *ConsolePrinter) getMethodColor(method string) *color.Color {
	switch strings.ToUpper(method) {
	case "GET":
		return p.colorScheme.MethodGET
	case "POST":
		return p.colorScheme.MethodPOST
	case "PUT":
		return p.colorScheme.MethodPUT
	case "DELETE":
		return p.colorScheme.MethodDELETE
	case "PATCH":
		return p.colorScheme.MethodPATCH
	default:
		return color.New(color.FgWhite, color.Bold)
	}
}

// wrapText wraps text to fit within maxWidth display columns, preserving words
func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		return []string{text}
	}

	var lines []string
	currentLine := words[0]
	currentWidth := runewidth.StringWidth(currentLine)

	for _, word := range words[1:] {
		wordWidth := runewidth.StringWidth(word)
		if currentWidth+1+wordWidth > maxWidth {
			lines = append(lines, currentLine)
			currentLine = word
			currentWidth = wordWidth
			continue
		}
		currentLine += " " + word
		currentWidth += 1 + wordWidth
	}
	return append(lines, currentLine)
}

func isBinaryText(text string) bool {
	nullCount := strings.Count(text, "\x00")
	return nullCount > 0 && nullCount > len(text)/10
}
