package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/condition-suggestion-engine/internal/domain"
)

// DefaultQueryTimeout bounds one oracle query when no timeout is configured.
const DefaultQueryTimeout = 20 * time.Second

// Adapter implements domain.ConditionOracle on top of a ChatClient. It never returns an error:
// transport failures, timeouts and malformed replies all produce an empty list.
type Adapter struct {
	client  ChatClient
	timeout time.Duration
	logger  *logrus.Logger

	// Set by NewFromConfig; both are optional.
	breaker *ResilientChatClient
	cache   *CachedChatClient
}

// NewAdapter creates an oracle adapter. A non-positive timeout selects DefaultQueryTimeout.
func NewAdapter(client ChatClient, timeout time.Duration, logger *logrus.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Adapter{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

var _ domain.ConditionOracle = (*Adapter)(nil)

// QueryForParameters asks the oracle which conditions the abnormal parameters may indicate.
// Parameters flagged as within range are not sent.
func (a *Adapter) QueryForParameters(ctx context.Context, parameters []domain.Parameter, member domain.MemberInfo, existingConditions []string) []domain.ConditionSuggestion {
	abnormal := domain.AbnormalParameters(parameters)
	if len(abnormal) == 0 {
		return []domain.ConditionSuggestion{}
	}
	prompt := BuildParameterPrompt(abnormal, member, existingConditions)
	return a.query(ctx, "parameters", prompt, domain.SourceAIAnalysis, logrus.Fields{
		"member_id":       member.ID,
		"parameter_count": len(abnormal),
	})
}

// QueryForReportTypes asks the oracle which conditions the given report types usually monitor.
func (a *Adapter) QueryForReportTypes(ctx context.Context, reportTypes []string, member domain.MemberInfo, existingConditions []string) []domain.ConditionSuggestion {
	distinct := DistinctReportTypes(reportTypes)
	if len(distinct) == 0 {
		return []domain.ConditionSuggestion{}
	}
	prompt := BuildReportTypePrompt(distinct, member, existingConditions)
	return a.query(ctx, "report_types", prompt, domain.SourceReportType, logrus.Fields{
		"member_id":    member.ID,
		"report_types": len(distinct),
	})
}

// Check reports the oracle as failing while its circuit breaker is open.
func (a *Adapter) Check(ctx context.Context) error {
	if a.client == nil {
		return errors.New("oracle client not configured")
	}
	if a.breaker != nil && a.breaker.State() == gobreaker.StateOpen {
		return ErrOracleUnavailable
	}
	return ctx.Err()
}

// Details returns the breaker state and reply cache counters for the health endpoint.
func (a *Adapter) Details() interface{} {
	details := map[string]interface{}{}
	if a.breaker != nil {
		details["breaker_state"] = a.breaker.State().String()
	}
	if a.cache != nil {
		details["cache"] = a.cache.Stats()
	}
	return details
}

func (a *Adapter) query(ctx context.Context, mode, prompt string, source domain.Source, fields logrus.Fields) []domain.ConditionSuggestion {
	if a.client == nil {
		return []domain.ConditionSuggestion{}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	reply, err := a.complete(ctx, prompt)
	fields["mode"] = mode
	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		a.logger.WithFields(fields).WithError(err).Warn("Oracle query failed, continuing without oracle suggestions")
		return []domain.ConditionSuggestion{}
	}

	suggestions := ParseReply(reply, source)
	fields["suggestions"] = len(suggestions)
	a.logger.WithFields(fields).Debug("Oracle query completed")
	return suggestions
}

// complete runs the client call so that a panicking client or an expired context still
// resolves to an error.
func (a *Adapter) complete(ctx context.Context, prompt string) (string, error) {
	type result struct {
		reply string
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: &panicError{value: r}}
			}
		}()
		reply, err := a.client.Complete(ctx, prompt)
		done <- result{reply: reply, err: err}
	}()

	select {
	case res := <-done:
		return res.reply, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("oracle client panicked: %v", e.value)
}
