// Package curlparse reads curl command lines into the structured request
// model of pkg/curl.
//
// Two independent readings are produced: a Parser guess, which keeps the
// body exactly as typed, and a Converter result, which decodes the body by
// its declared content type. curl.Normalize reconciles the two.
package curlparse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/pkg/curl"
)

// ErrParse is returned when the primary parser cannot read a command.
var ErrParse = errors.New("failed to parse cURL command")

// Parser produces the primary reading of a command.
type Parser interface {
	Parse(command string) (curl.Guess, error)
}

// Converter produces the secondary reading used to cross-check bodies.
type Converter interface {
	Convert(command string) (*curl.Conversion, error)
}

// CommandParser is the default Parser.
type CommandParser struct{}

// Parse implements Parser.
func (CommandParser) Parse(command string) (curl.Guess, error) {
	inv, err := scan(command)
	if err != nil {
		return curl.Guess{}, err
	}

	target, query := inv.splitURL()
	g := curl.Guess{
		URL:     target,
		Method:  inv.resolvedMethod(),
		Headers: inv.requestHeaders(),
		Query:   query,
	}
	if !inv.get && len(inv.data) > 0 {
		g.Body = inv.body()
	}
	return g, nil
}

// Service runs both readings and normalizes them.
type Service struct {
	parser    Parser
	converter Converter
	logger    logger.Logger
}

// NewService wires the default parser and converter.
func NewService(log logger.Logger) *Service {
	return NewServiceWith(CommandParser{}, ContentConverter{}, log)
}

// NewServiceWith wires custom readers. A nil converter disables the cross
// check.
func NewServiceWith(p Parser, c Converter, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{parser: p, converter: c, logger: log}
}

// Parse reads command into a State. A primary parser failure is reported
// as ErrParse; a converter failure only drops the cross check.
func (s *Service) Parse(command string) (*curl.State, error) {
	command = strings.TrimSpace(command)
	guess, err := s.parser.Parse(command)
	if err != nil {
		s.logger.Warn("curl parse failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	var conv *curl.Conversion
	if s.converter != nil {
		conv, err = s.converter.Convert(command)
		if err != nil {
			s.logger.Debug("curl conversion failed", "error", err)
			conv = nil
		}
	}

	state := curl.Normalize(guess, conv, command)
	s.logger.Debug("curl parsed",
		"method", state.Method,
		"url", state.URL,
		"body_kind", string(state.BodyKind()),
		"passthrough", len(state.ExtraFlags),
	)
	return state, nil
}
