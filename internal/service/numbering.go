package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/settings"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	defaultTicketPrefix = "TK-"
	defaultTicketDigits = 6
	minTicketDigits     = 1
	maxTicketDigits     = 10
	maxTicketPrefixLen  = 20
)

// TicketNumberGenerator allocates human readable ticket numbers such as TK-000042.
type TicketNumberGenerator struct {
	tickets  repository.TicketRepository
	settings *settings.Store
}

func NewTicketNumberGenerator(tickets repository.TicketRepository, store *settings.Store) *TicketNumberGenerator {
	return &TicketNumberGenerator{tickets: tickets, settings: store}
}

// Next returns the number for the ticket about to be created. It must run
// inside the creating transaction so the numbering lock covers the insert.
func (g *TicketNumberGenerator) Next(ctx context.Context) (string, error) {
	if err := g.tickets.LockNumbering(ctx); err != nil {
		return "", fmt.Errorf("lock numbering: %w", err)
	}

	format := g.Format(ctx)
	last, err := g.LastCorrelative(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%0*d", format.Prefix, format.Digits, last+1), nil
}

// LastCorrelative returns the counter of the most recently created ticket, 0 when there is none.
func (g *TicketNumberGenerator) LastCorrelative(ctx context.Context) (int64, error) {
	latest, err := g.tickets.FindLatest(ctx)
	if err != nil {
		if repository.IsNotFound(err) {
			return 0, nil
		}
		return 0, apperrors.MapError(err)
	}
	return trailingNumber(latest.TicketNumber), nil
}

// ResetCorrelative records that an operator requested a reset. Numbering keeps
// following the latest ticket, so unique numbers are never reissued.
func (g *TicketNumberGenerator) ResetCorrelative(ctx context.Context) (int64, error) {
	last, err := g.LastCorrelative(ctx)
	if err != nil {
		return 0, err
	}
	if err := g.settings.Set(ctx, settings.KeyCorrelativeReset, "true"); err != nil {
		return 0, apperrors.MapError(err)
	}
	if err := g.settings.Set(ctx, settings.KeyCorrelativeBeforeReset, strconv.FormatInt(last, 10)); err != nil {
		return 0, apperrors.MapError(err)
	}
	return last, nil
}

// NumberFormat is the stored ticket number layout.
type NumberFormat struct {
	Prefix string `json:"prefix"`
	Digits int    `json:"digits"`
}

// Format returns the layout new numbers are generated with.
func (g *TicketNumberGenerator) Format(ctx context.Context) NumberFormat {
	prefix := g.settings.GetString(ctx, settings.KeyTicketNumberPrefix, defaultTicketPrefix)
	if prefix == "" {
		prefix = defaultTicketPrefix
	}
	digits := g.settings.GetInt(ctx, settings.KeyTicketNumberDigits, defaultTicketDigits)
	return NumberFormat{Prefix: prefix, Digits: min(max(digits, minTicketDigits), maxTicketDigits)}
}

// UpdateFormat changes the prefix and/or digit count of future ticket numbers.
// A prefix may not end in a digit, otherwise the counter could not be told apart from it.
func (g *TicketNumberGenerator) UpdateFormat(ctx context.Context, prefix *string, digits *int) (NumberFormat, error) {
	if prefix == nil && digits == nil {
		return NumberFormat{}, apperrors.NewValidationError("no numbering settings given", nil)
	}
	details := map[string]any{}
	if prefix != nil {
		p := *prefix
		switch {
		case p == "":
			details["prefix"] = "is required"
		case len(p) > maxTicketPrefixLen:
			details["prefix"] = fmt.Sprintf("must be at most %d characters", maxTicketPrefixLen)
		case p[len(p)-1] >= '0' && p[len(p)-1] <= '9':
			details["prefix"] = "must not end in a digit"
		case strings.TrimSpace(p) != p:
			details["prefix"] = "must not start or end with spaces"
		}
	}
	if digits != nil && (*digits < minTicketDigits || *digits > maxTicketDigits) {
		details["digits"] = fmt.Sprintf("must be between %d and %d", minTicketDigits, maxTicketDigits)
	}
	if len(details) > 0 {
		return NumberFormat{}, apperrors.NewValidationError("invalid numbering settings", details)
	}

	if prefix != nil {
		if err := g.settings.Set(ctx, settings.KeyTicketNumberPrefix, *prefix); err != nil {
			return NumberFormat{}, apperrors.MapError(err)
		}
	}
	if digits != nil {
		if err := g.settings.Set(ctx, settings.KeyTicketNumberDigits, strconv.Itoa(*digits)); err != nil {
			return NumberFormat{}, apperrors.MapError(err)
		}
	}
	return g.Format(ctx), nil
}

// trailingNumber parses the run of decimal digits at the end of number.
// Prefix changes over time therefore do not break the sequence.
func trailingNumber(number string) int64 {
	end := len(number)
	start := end
	for start > 0 && number[start-1] >= '0' && number[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0
	}
	n, err := strconv.ParseInt(number[start:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
