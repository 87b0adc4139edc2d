package types

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

// Direction is the side of a proposed trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// TradeCandidate is a proposed trade produced by a strategy's decision
// function. The evaluation core consumes candidates transiently; it never
// persists them.
type TradeCandidate struct {
	// StrategyName is the registered name of the strategy that produced
	// this candidate.
	StrategyName string    `yaml:"strategy_name" validate:"required"`
	Direction    Direction `yaml:"direction" validate:"required,oneof=LONG SHORT"`
	Entry        float64   `yaml:"entry" validate:"required,gt=0"`
	Stop         float64   `yaml:"stop" validate:"required,gt=0"`
	TakeProfit1  float64   `yaml:"take_profit_1" validate:"required,gt=0"`
	TakeProfit2  float64   `yaml:"take_profit_2" validate:"required,gt=0"`
	// Confidence is an additive score in [0, 100].
	Confidence float64 `yaml:"confidence" validate:"gte=0,lte=100"`
	// Rationale is a free-text explanation of why the candidate was produced.
	Rationale string `yaml:"rationale"`
	// Timestamp is the time of the bar that triggered the candidate.
	Timestamp time.Time `yaml:"timestamp" validate:"required"`
}

var candidateValidator = validator.New()

// Validate checks the structural fields and the price-ordering invariant:
// the stop must sit on the losing side of the entry, both take-profits on
// the winning side, with take-profit-2 strictly further from entry than
// take-profit-1.
func (c *TradeCandidate) Validate() error {
	if err := candidateValidator.Struct(c); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidCandidate, err, "candidate from %q failed field validation", c.StrategyName)
	}

	switch c.Direction {
	case DirectionLong:
		if c.Stop >= c.Entry {
			return errors.Newf(errors.ErrCodeInvalidStop, "long candidate from %q has stop %.4f at or above entry %.4f", c.StrategyName, c.Stop, c.Entry)
		}
		if c.TakeProfit1 <= c.Entry {
			return errors.Newf(errors.ErrCodeInvalidTakeProfit, "long candidate from %q has take-profit-1 %.4f at or below entry %.4f", c.StrategyName, c.TakeProfit1, c.Entry)
		}
		if c.TakeProfit2 <= c.TakeProfit1 {
			return errors.Newf(errors.ErrCodeInvalidTakeProfit, "long candidate from %q has take-profit-2 %.4f at or below take-profit-1 %.4f", c.StrategyName, c.TakeProfit2, c.TakeProfit1)
		}
	case DirectionShort:
		if c.Stop <= c.Entry {
			return errors.Newf(errors.ErrCodeInvalidStop, "short candidate from %q has stop %.4f at or below entry %.4f", c.StrategyName, c.Stop, c.Entry)
		}
		if c.TakeProfit1 >= c.Entry {
			return errors.Newf(errors.ErrCodeInvalidTakeProfit, "short candidate from %q has take-profit-1 %.4f at or above entry %.4f", c.StrategyName, c.TakeProfit1, c.Entry)
		}
		if c.TakeProfit2 >= c.TakeProfit1 {
			return errors.Newf(errors.ErrCodeInvalidTakeProfit, "short candidate from %q has take-profit-2 %.4f at or above take-profit-1 %.4f", c.StrategyName, c.TakeProfit2, c.TakeProfit1)
		}
	default:
		return errors.Newf(errors.ErrCodeInvalidCandidate, "candidate from %q has unknown direction %q", c.StrategyName, c.Direction)
	}

	return nil
}

// RiskDistance returns the absolute entry-to-stop distance.
func (c *TradeCandidate) RiskDistance() float64 {
	if c.Direction == DirectionLong {
		return c.Entry - c.Stop
	}
	return c.Stop - c.Entry
}
